// Package msgtype holds the RFC 4120 §5.10 KRB-MSG-TYPE values carried in
// the msg-type field of every top-level protocol message.
package msgtype

const (
	KRB_AS_REQ    = 10
	KRB_AS_REP    = 11
	KRB_TGS_REQ   = 12
	KRB_TGS_REP   = 13
	KRB_AP_REQ    = 14
	KRB_AP_REP    = 15
	KRB_SAFE      = 20
	KRB_PRIV      = 21
	KRB_CRED      = 22
	KRB_ERROR     = 30
)
