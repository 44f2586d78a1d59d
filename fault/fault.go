// error instances
//
// Provides a single instance of errors to allow easy comparison
package fault

// error base
type GenericError string

// to allow for different classes of errors
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyAborted        = ProcessError("transaction already aborted")
	ErrAlreadyInitialised    = ProcessError("already initialised")
	ErrDuplicateAttribute    = InvalidError("duplicate attribute in transaction")
	ErrEmbeddedNul           = InvalidError("value contains an embedded NUL")
	ErrGrammarMismatch       = InvalidError("value does not match its grammar")
	ErrHandlerOpenFailed     = ProcessError("handler stream could not be opened")
	ErrInvalidLoggerChannel  = ProcessError("invalid logger channel")
	ErrInvalidOpenArguments  = InvalidError("invalid open arguments")
	ErrInvalidVariableCount  = InvalidError("open requires exactly two attribute variables")
	ErrMalformedHeader       = InvalidError("malformed length-prefixed header")
	ErrMissingAttribute      = InvalidError("attribute not found for delete")
	ErrMissingHandler        = InvalidError("open requires at least one handler")
	ErrMissingHandlerEquals  = InvalidError("handler declaration is missing '='")
	ErrNoLongerActive        = ProcessError("transaction is not active")
	ErrNotFoundObject        = NotFoundError("object not found")
	ErrTransactionNotActive  = ProcessError("no transaction is open on this environment")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e InvalidError) Error() string  { return string(e) }
func (e NotFoundError) Error() string { return string(e) }
func (e ProcessError) Error() string  { return string(e) }

// determine the class of an error
func IsErrInvalid(e error) bool  { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool  { _, ok := e.(ProcessError); return ok }
