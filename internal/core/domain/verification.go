package domain

// CodeIssued reports the outcome of a verification code request.
// The code itself is only ever handed to the delivery port.
type CodeIssued struct {
	Email      string
	ExpireInMs int64
}
