package queue

// Policy decides what a caller sees when processing fails or the caller gives up
// waiting. It is chosen per deployment.
type Policy struct {
	Fallback     bool
	FallbackText string
}

// StrictPolicy surfaces every terminal failure as an error
func StrictPolicy() Policy {
	return Policy{}
}

// FallbackPolicy replaces every terminal failure with a canned successful answer
func FallbackPolicy(text string) Policy {
	return Policy{Fallback: true, FallbackText: text}
}

// Resolve maps a terminal failure to the caller-visible result
func (p Policy) Resolve(err error) (*Response, error) {
	if err == nil {
		return nil, nil
	}
	if !p.Fallback {
		return nil, err
	}
	return &Response{
		Success:    true,
		AIResponse: AIText{Text: p.FallbackText},
		Fallback:   true,
	}, nil
}

func (p Policy) Name() string {
	if p.Fallback {
		return "fallback"
	}
	return "strict"
}
