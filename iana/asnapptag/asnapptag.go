// Package asnapptag holds the RFC 4120 §5.10 ASN.1 APPLICATION tag numbers
// that wrap every top-level protocol message and ticket structure.
package asnapptag

const (
	Ticket          = 1
	Authenticator   = 2
	EncTicketPart   = 3
	ASReq           = 10
	ASRep           = 11
	TGSReq          = 12
	TGSRep          = 13
	APReq           = 14
	APRep           = 15
	EncASRepPart    = 25
	EncTGSRepPart   = 26
	EncApRepPart    = 27
	KRBSafe         = 20
	KRBPriv         = 21
	KRBCred         = 22
	KRBError        = 30
)
