// Package normalize turns a raw solver document into the flat list of pods
// shown to the user.
//
// Normalization is all-or-nothing: a document is either fully accepted or
// rejected with an error wrapping domain.ErrMalformedResponse. Documents that
// are well formed but lack the sections proving the solver understood the
// input additionally wrap domain.ErrUnsupportedEquation.
package normalize

import (
	"fmt"
	"net/url"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Identifiers that must both appear among the source pods.
const (
	InputPodID  = "Input"
	ResultPodID = "Result"
)

type status struct {
	Success *bool `mapstructure:"success"`
	Error   *bool `mapstructure:"error"`
}

type rawPod struct {
	Title   *string `mapstructure:"title"`
	ID      *string `mapstructure:"id"`
	Subpods []any   `mapstructure:"subpods"`
}

type rawSubpod struct {
	Title *string `mapstructure:"title"`
	Img   *rawImg `mapstructure:"img"`
}

type rawImg struct {
	Src *string `mapstructure:"src"`
}

// Normalize validates doc and flattens its pods.
//
// For each subpod the displayed title is "<pod title>: <subpod title>", or
// the pod title alone when the subpod title is empty.
func Normalize(doc map[string]any) ([]domain.Pod, error) {
	if doc == nil {
		return nil, malformed("empty document")
	}

	var st status
	if err := decode(doc, &st); err != nil {
		return nil, malformed("status flags: %v", err)
	}
	if st.Success == nil || st.Error == nil {
		return nil, malformed("status flags missing")
	}
	if !*st.Success || *st.Error {
		return nil, malformed("solver reported failure (success=%t error=%t)", *st.Success, *st.Error)
	}

	rawPods, ok := doc["pods"]
	if !ok || rawPods == nil {
		return nil, malformed("no pods")
	}
	var pods []any
	if err := decode(rawPods, &pods); err != nil {
		return nil, malformed("pods: %v", err)
	}

	var out []domain.Pod
	ids := make(map[string]bool, len(pods))
	for i, raw := range pods {
		var p rawPod
		if err := decode(raw, &p); err != nil {
			return nil, malformed("pod %d: %v", i, err)
		}
		switch {
		case p.Title == nil:
			return nil, malformed("pod %d: missing title", i)
		case p.ID == nil:
			return nil, malformed("pod %d: missing id", i)
		case len(p.Subpods) == 0:
			return nil, malformed("pod %d (%s): no subpods", i, *p.ID)
		}
		ids[*p.ID] = true

		for j, rawSub := range p.Subpods {
			pod, err := flatten(*p.Title, rawSub)
			if err != nil {
				return nil, malformed("pod %d (%s) subpod %d: %v", i, *p.ID, j, err)
			}
			out = append(out, pod)
		}
	}

	switch {
	case len(out) == 0:
		return nil, unsupported("no pods")
	case !ids[InputPodID]:
		return nil, unsupported("no %s pod", InputPodID)
	case !ids[ResultPodID]:
		return nil, unsupported("no %s pod", ResultPodID)
	}
	return out, nil
}

func flatten(podTitle string, raw any) (domain.Pod, error) {
	var s rawSubpod
	if err := decode(raw, &s); err != nil {
		return domain.Pod{}, err
	}
	if s.Title == nil {
		return domain.Pod{}, fmt.Errorf("missing title")
	}
	if s.Img == nil || s.Img.Src == nil || *s.Img.Src == "" {
		return domain.Pod{}, fmt.Errorf("missing image source")
	}
	if _, err := url.Parse(*s.Img.Src); err != nil {
		return domain.Pod{}, fmt.Errorf("image source: %w", err)
	}

	title := podTitle
	if *s.Title != "" {
		title = podTitle + ": " + *s.Title
	}
	return domain.Pod{Title: title, Src: *s.Img.Src}, nil
}

// decode copies input into out without weak typing, so a number where a
// string is expected is an error.
func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedResponse, fmt.Sprintf(format, args...))
}

func unsupported(format string, args ...any) error {
	return fmt.Errorf("%w: %w: %s", domain.ErrMalformedResponse, domain.ErrUnsupportedEquation, fmt.Sprintf(format, args...))
}
