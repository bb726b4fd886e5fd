package mail

import "errors"

var (
	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")

	// ErrNoSender indicates no From address was provided.
	ErrNoSender = errors.New("email must have a sender")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates no HTML content was provided.
	ErrNoContent = errors.New("email must have HTML content")

	// ErrInvalidAddress indicates an address that does not parse as RFC 5322.
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrSendFailed indicates delivery failed.
	ErrSendFailed = errors.New("failed to send email")

	// ErrTransportNotFound indicates the transport file does not exist.
	ErrTransportNotFound = errors.New("transport file not found")

	// ErrInvalidTransport indicates a transport file that cannot be used.
	ErrInvalidTransport = errors.New("invalid transport")
)
