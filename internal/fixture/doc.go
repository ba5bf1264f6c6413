// Package fixture runs an external command inside a fixture directory and
// verifies what it produced.
//
// # Fixture Layout
//
// A fixture is a directory holding a command file and any number of
// expectation entries:
//
//	simple-build/
//	  command          shell command line, run with the fixture as cwd
//	  expected-STDOUT  optional, literal expected standard output
//	  expected-dist/   expected tree; the command must produce dist/
//	  src/
//
// Any entry whose name starts with "expected-" (compared case-insensitively)
// other than expected-STDOUT marks a generated counterpart: the same name
// with the marker removed. Before every run the harness deletes each
// generated counterpart so output left over from an earlier run cannot make
// a case pass. Do not keep anything important at those paths.
//
// # Verification
//
// A case passes when:
//   - the command exits cleanly
//   - stdout equals expected-STDOUT byte for byte (when the file exists)
//   - every file under each expected-* tree has a counterpart whose
//     contents match after line-ending normalization
//
// Files present in a generated tree but absent from the expected tree never
// fail a case. WithReportExtraneous turns them into warnings on the Result.
//
// # Usage
//
// Register each fixture as a subtest:
//
//	func TestCLI(t *testing.T) {
//	    h := fixture.New("testdata")
//	    t.Run("echo", h.Case("test-echo"))
//	    t.Run("echo-tofile", h.Case("test-echo-tofile"))
//	}
package fixture
