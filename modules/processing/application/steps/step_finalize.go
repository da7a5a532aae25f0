package steps

import "context"

// FinalizeOutput is step 9's durable output: confirmation that the final
// transcript object was written. Task completion itself is reported by the
// Driver once this step succeeds (§4.9 "Mapping to task states").
type FinalizeOutput struct {
	TextLength int `json:"textLength"`
}

// stepFinalize writes the plain-text transcript to the key step 5
// allocated, finalizing its persisted form.
func (d *Driver) stepFinalize(ctx context.Context, enhanced EnhanceOutput) (FinalizeOutput, error) {
	if err := d.store.Put(ctx, enhanced.PlainTextKey, "text/plain; charset=utf-8", []byte(enhanced.Bundle.Text)); err != nil {
		return FinalizeOutput{}, err
	}
	return FinalizeOutput{TextLength: len(enhanced.Bundle.Text)}, nil
}
