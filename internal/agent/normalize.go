package agent

import "fmt"

// Normalize extracts the reply text from one of the three shapes the agent uses:
// a list (first element's text, or the element itself when it is a string), a bare
// string, or an object with a text field.
func Normalize(data interface{}) (string, error) {
	var text string

	switch v := data.(type) {
	case []interface{}:
		if len(v) > 0 {
			if first, ok := v[0].(string); ok {
				text = first
			} else {
				text = textField(v[0])
			}
		}
	case string:
		text = v
	case map[string]interface{}:
		text = textField(v)
	}

	if text == "" {
		return "", fmt.Errorf("%w: %T", ErrInvalidResponseFormat, data)
	}
	return text, nil
}

func textField(v interface{}) string {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return ""
	}
	text, _ := obj["text"].(string)
	return text
}
