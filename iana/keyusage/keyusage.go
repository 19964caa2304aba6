// Package keyusage holds the RFC 4120 §7.5.1 key usage numbers this
// implementation needs to keep derived keys / checksums from being
// swappable between message contexts.
package keyusage

const (
	ASReqPAEncTimestamp = 1
	ASRepEncPart        = 3
	TGSReqPATGSReqAPReqAuthenticatorChecksum = 6
	TGSReqPATGSReqAPReqAuthenticator         = 7
	TGSRepEncPartSessionKey                  = 8
	TGSRepEncPartSubKey                      = 9
	APReqAuthenticatorChecksum                = 10
	APReqAuthenticator                        = 11
	APRepEncPart                              = 12
)
