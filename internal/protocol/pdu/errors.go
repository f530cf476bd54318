package pdu

import "errors"

var (
	// ErrInvalidCorrelationID indicates a correlation ID that is not 16 bytes long or contains a disallowed byte value.
	ErrInvalidCorrelationID = errors.New("invalid correlationId")
	// ErrDeactivateAll indicates the server sent a Deactivate All PDU (MS-RDPBCGR 2.2.3.1).
	ErrDeactivateAll = errors.New("deactivate all")
)
