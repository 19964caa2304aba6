// Package errorcode holds the RFC 4120 §7.5.9 KRB-ERROR error-code table.
// Values 1-76 are protocol-expressible (surfaced to the peer inside a
// KRB-ERROR); KRB_ERR_GENERIC and KRB_ERR_FIELD_TOOLONG additionally cover
// the internal/transport fallbacks spec.md §7 describes.
package errorcode

const (
	KDC_ERR_NONE                    = 0
	KDC_ERR_NAME_EXP                = 1
	KDC_ERR_SERVICE_EXP             = 2
	KDC_ERR_BAD_PVNO                = 3
	KDC_ERR_C_OLD_MAST_KVNO         = 4
	KDC_ERR_S_OLD_MAST_KVNO         = 5
	KDC_ERR_C_PRINCIPAL_UNKNOWN     = 6
	KDC_ERR_S_PRINCIPAL_UNKNOWN     = 7
	KDC_ERR_PRINCIPAL_NOT_UNIQUE    = 8
	KDC_ERR_NULL_KEY                = 9
	KDC_ERR_CANNOT_POSTDATE         = 10
	KDC_ERR_NEVER_VALID             = 11
	KDC_ERR_POLICY                  = 12
	KDC_ERR_BADOPTION               = 13
	KDC_ERR_ETYPE_NOSUPP            = 14
	KDC_ERR_SUMTYPE_NOSUPP          = 15
	KDC_ERR_PADATA_TYPE_NOSUPP      = 16
	KDC_ERR_TRTYPE_NOSUPP           = 17
	KDC_ERR_CLIENT_REVOKED          = 18
	KDC_ERR_SERVICE_REVOKED         = 19
	KDC_ERR_TGT_REVOKED             = 20
	KDC_ERR_CLIENT_NOTYET           = 21
	KDC_ERR_SERVICE_NOTYET          = 22
	KDC_ERR_KEY_EXPIRED             = 23
	KDC_ERR_PREAUTH_FAILED          = 24
	KDC_ERR_PREAUTH_REQUIRED        = 25
	KDC_ERR_SERVER_NOMATCH          = 26
	KDC_ERR_MUST_USE_USER2USER      = 27
	KDC_ERR_PATH_NOT_ACCEPTED       = 28
	KDC_ERR_SVC_UNAVAILABLE         = 29
	KRB_AP_ERR_BAD_INTEGRITY        = 31
	KRB_AP_ERR_TKT_EXPIRED          = 32
	KRB_AP_ERR_TKT_NYV              = 33
	KRB_AP_ERR_REPEAT               = 34
	KRB_AP_ERR_NOT_US               = 35
	KRB_AP_ERR_BADMATCH             = 36
	KRB_AP_ERR_SKEW                 = 37
	KRB_AP_ERR_BADADDR              = 38
	KRB_AP_ERR_BADVERSION           = 39
	KRB_AP_ERR_MSG_TYPE             = 40
	KRB_AP_ERR_MODIFIED             = 41
	KRB_AP_ERR_BADORDER             = 42
	KRB_AP_ERR_BADKEYVER            = 44
	KRB_AP_ERR_NOKEY                = 45
	KRB_AP_ERR_MUT_FAIL             = 46
	KRB_AP_ERR_BADDIRECTION         = 47
	KRB_AP_ERR_METHOD               = 48
	KRB_AP_ERR_BADSEQ               = 49
	KRB_AP_ERR_INAPP_CKSUM          = 50
	KRB_AP_PATH_NOT_ACCEPTED        = 51
	KRB_ERR_RESPONSE_TOO_BIG        = 52
	KRB_ERR_GENERIC                 = 60
	KRB_ERR_FIELD_TOOLONG           = 61
	KDC_ERROR_CLIENT_NOT_TRUSTED    = 62
	KDC_ERROR_KDC_NOT_TRUSTED       = 63
	KDC_ERROR_INVALID_SIG           = 64
	KDC_ERR_KEY_TOO_WEAK            = 65
	KRB_AP_ERR_USER_TO_USER_REQUIRED = 66
	KRB_AP_ERR_NO_TGT               = 67
	KDC_ERR_WRONG_REALM             = 68
	KRB_AP_ERR_USER2USER_REQUIRED   = 69
	KDC_ERR_CANT_VERIFY_CERTIFICATE = 70
	KDC_ERR_INVALID_CERTIFICATE     = 71
	KDC_ERR_REVOKED_CERTIFICATE     = 72
	KDC_ERR_REVOCATION_STATUS_UNKNOWN = 73
	KDC_ERR_CLIENT_NAME_MISMATCH    = 75
	KDC_ERR_KDC_NAME_MISMATCH       = 76
)

// Text returns a short, human-readable description for the given e-code,
// used by client-facing error messages (spec.md §7: "mapped from KRB-ERROR
// e-code to human-readable messages").
func Text(code int) string {
	if t, ok := texts[code]; ok {
		return t
	}
	return "unknown Kerberos error"
}

var texts = map[int]string{
	KDC_ERR_NAME_EXP:                "client's entry in database expired",
	KDC_ERR_SERVICE_EXP:             "server's entry in database has expired",
	KDC_ERR_BAD_PVNO:                "requested protocol version number not supported",
	KDC_ERR_C_PRINCIPAL_UNKNOWN:     "client not found in Kerberos database",
	KDC_ERR_S_PRINCIPAL_UNKNOWN:     "server not found in Kerberos database",
	KDC_ERR_PRINCIPAL_NOT_UNIQUE:    "multiple principal entries in database",
	KDC_ERR_NULL_KEY:                "the client or server has a null key",
	KDC_ERR_CANNOT_POSTDATE:         "ticket not eligible for postdating",
	KDC_ERR_NEVER_VALID:             "requested starttime is later than end time",
	KDC_ERR_POLICY:                  "KDC policy rejects request",
	KDC_ERR_BADOPTION:               "KDC cannot accommodate requested option",
	KDC_ERR_ETYPE_NOSUPP:            "KDC has no support for encryption type",
	KDC_ERR_SUMTYPE_NOSUPP:          "KDC has no support for checksum type",
	KDC_ERR_PADATA_TYPE_NOSUPP:      "KDC has no support for padata type",
	KDC_ERR_PREAUTH_FAILED:          "pre-authentication information was invalid",
	KDC_ERR_PREAUTH_REQUIRED:        "additional pre-authentication required",
	KRB_AP_ERR_BAD_INTEGRITY:        "integrity check on decrypted field failed",
	KRB_AP_ERR_TKT_EXPIRED:          "ticket expired",
	KRB_AP_ERR_TKT_NYV:              "ticket not yet valid",
	KRB_AP_ERR_REPEAT:               "request is a replay",
	KRB_AP_ERR_NOT_US:               "the ticket isn't for us",
	KRB_AP_ERR_BADMATCH:             "ticket and authenticator don't match",
	KRB_AP_ERR_SKEW:                 "clock skew too great",
	KRB_AP_ERR_BADADDR:              "incorrect net address",
	KRB_AP_ERR_MSG_TYPE:             "incorrect message type",
	KRB_AP_ERR_MODIFIED:             "message stream modified",
	KRB_AP_ERR_BADKEYVER:            "specified version of key is not available",
	KRB_AP_ERR_NOKEY:                "service key not available",
	KRB_AP_ERR_INAPP_CKSUM:          "inappropriate type of checksum in message",
	KRB_ERR_GENERIC:                 "generic error",
	KRB_ERR_FIELD_TOOLONG:           "field is too long for this implementation",
}
