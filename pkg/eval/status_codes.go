package eval

// Status codes returned by the shell itself.
//
// POSIX only specifies the status code for [StatusCommandNotExecutable] and
// [StatusCommandNotFound] and the status code when a command was killed by
// a signal. Errors during expansion or redirection are only required to
// have status codes between 1 and 125. See XCU 2.8.2.
//
// The practice of using 0 for no error is really well known, so we don't
// define a constant for it; code should just use 0.
const (
	// Same as dash and bash; zsh uses 1. Tested with: $sh -c 'if;'
	StatusSyntaxError = 2

	StatusExpansionError   = 1
	StatusRedirectionError = 1
	StatusAssignmentError  = 1
	StatusBadCommandLine   = 2

	// Not sure what other shells use for the following error conditions.
	StatusPipeError = 100
	StatusWaitError = 101
	StatusWaitOther = 102
	StatusShellBug  = 103

	// Specified by POSIX.
	StatusCommandNotExecutable = 126
	StatusCommandNotFound      = 127
	StatusSignalBase           = 128
)
