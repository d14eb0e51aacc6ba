package bridge

// Test-only exports for internal functions.
var (
	Unescape            = unescape
	MoreSpecific        = moreSpecific
	ValidateConstraints = validateConstraints
	SetFieldValue       = setFieldValue
	Classify            = classify
	Finalize            = finalize
	RequestCookies      = requestCookies
)

// Negotiate returns the content type of the encoder chosen for accept by a
// default codec registry.
func Negotiate(accept string) string {
	return newCodecRegistry(nil, nil).negotiate(accept).ContentType()
}

// DecoderFor reports the content type of the decoder chosen for ct by a
// default codec registry.
func DecoderFor(ct string) (string, bool) {
	dec, ok := newCodecRegistry(nil, nil).decoderFor(ct)
	if !ok {
		return "", false
	}
	return dec.ContentType(), true
}
