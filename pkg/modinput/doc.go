// Package modinput runs an input kind as a host-driven external process.
//
// The host starts the process in one of three modes:
//
//   - scheme: the input describes itself and its arguments.
//   - validate: the host sends one proposed configuration (<items>) and
//     expects nothing back on success or an <error> document on rejection.
//   - stream: the host sends every configured instance (<input>) and reads
//     a single <stream> document of events until the process exits.
//
// An input implements Input and, optionally, any of Validator, Starter,
// Ender, SetupHook and TeardownHook. The Runner detects them by type
// assertion.
//
//	r := modinput.New(myInput{}, modinput.WithLogger(logger))
//	err := r.Run(ctx, modinput.ModeStream)
//	os.Exit(modinput.ExitCode(err))
//
// In stream mode every instance runs in its own goroutine and writes through
// a shared EventWriter. A failing instance does not stop the others, and
// the <stream> element is closed whatever happens.
package modinput
