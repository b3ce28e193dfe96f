package render

import "errors"

// Sentinel evaluation errors, matched with errors.Is by callers (spec.md
// §7's "Evaluation error" kind).
var (
	ErrRecursionLimit = errors.New("include/render recursion limit exceeded")
	ErrStepLimit      = errors.New("render step limit exceeded")
	ErrCancelled      = errors.New("render cancelled")
	ErrLoaderFailed   = errors.New("template loader failed")
	ErrCyclicInclude  = errors.New("cyclic include detected")
)
