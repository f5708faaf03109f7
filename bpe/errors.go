package bpe

import "github.com/pkg/errors"

// ErrDisallowedSpecial is returned by Encode when the input contains a
// registered special-token literal that the caller did not explicitly allow,
// or when the allow-list names a special the vocabulary does not register.
// The request is rejected outright; nothing is stripped or encoded as plain
// text, so control tokens cannot be injected from untrusted input.
var ErrDisallowedSpecial = errors.New("disallowed special token")
