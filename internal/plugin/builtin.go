package plugin

import "bytes"

// Uppercase replaces the current selection with its upper-cased form. It
// doubles as the reference implementation of the Context contract.
type Uppercase struct{}

func (Uppercase) Name() string { return "uppercase-selection" }

func (Uppercase) Execute(ctx *Context) error {
	text := ctx.SelectedText()
	if len(text) == 0 {
		return nil
	}
	ctx.ReplaceSelection(bytes.ToUpper(text))
	return nil
}
