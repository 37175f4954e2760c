package prompt

import (
	"context"
	"fmt"
	"sync"
)

// StaticPrompter answers from fixed values. Used by tests and by
// non-interactive runs where every value comes from flags.
type StaticPrompter struct {
	mu      sync.Mutex
	Answers map[string]string
	Yes     bool
	asked   [][]Field
}

func (p *StaticPrompter) Ask(ctx context.Context, fields []Field) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.asked = append(p.asked, fields)

	out := map[string]string{}
	for _, f := range fields {
		v := p.Answers[f.Name]
		if v == "" {
			if f.Required {
				return nil, fmt.Errorf("%w: no value for %s", ErrAborted, f.Name)
			}
			continue
		}
		if f.Validate != nil {
			if err := f.Validate(v); err != nil {
				return nil, fmt.Errorf("invalid %s: %w", f.Name, err)
			}
		}
		out[f.Name] = v
	}
	return out, nil
}

func (p *StaticPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	return p.Yes, nil
}

// Asked returns the field lists passed to Ask, in call order.
func (p *StaticPrompter) Asked() [][]Field {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]Field(nil), p.asked...)
}
