package bridge

// SelfValidator is implemented by body types that validate themselves. It
// runs after decoding and before any global Validator.
type SelfValidator interface {
	Validate() error
}

// Validator validates every decoded request body.
type Validator interface {
	Validate(body any) error
}
