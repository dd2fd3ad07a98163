// Package share packs a trip snapshot into a URL-safe token for offline handoff.
package share

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	dom "Tripboard/internal/domain"
)

// FragmentParam is the URL fragment parameter carrying a share token.
const FragmentParam = "share"

// maxDecoded caps the inflated size of a token.
const maxDecoded = 8 << 20

// ErrMalformedToken means a share token does not decode to a snapshot.
var ErrMalformedToken = errors.New("malformed share token")

type wireSnapshot struct {
	Version  int          `json:"v"`
	Tasks    *[]dom.Task  `json:"tasks"`
	Settings dom.Settings `json:"settings"`
}

const wireVersion = 1

// Encode serializes s into a compact base64url token.
func Encode(s dom.Snapshot) (string, error) {
	tasks := s.Tasks
	if tasks == nil {
		tasks = []dom.Task{}
	}
	raw, err := json.Marshal(wireSnapshot{Version: wireVersion, Tasks: &tasks, Settings: s.Settings})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := zw.Write(raw); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode parses a token produced by Encode. Any failure wraps ErrMalformedToken.
func Decode(token string) (dom.Snapshot, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return dom.Snapshot{}, malformed(err)
	}
	zr := flate.NewReader(bytes.NewReader(compressed))
	defer zr.Close()
	raw, err := io.ReadAll(io.LimitReader(zr, maxDecoded+1))
	if err != nil {
		return dom.Snapshot{}, malformed(err)
	}
	if len(raw) > maxDecoded {
		return dom.Snapshot{}, malformed(errors.New("token too large"))
	}

	var w wireSnapshot
	if err := json.Unmarshal(raw, &w); err != nil {
		return dom.Snapshot{}, malformed(err)
	}
	if w.Tasks == nil {
		return dom.Snapshot{}, malformed(errors.New("missing tasks"))
	}
	if w.Version > wireVersion {
		return dom.Snapshot{}, malformed(fmt.Errorf("unsupported version %d", w.Version))
	}
	for i, t := range *w.Tasks {
		if t.ID == "" {
			return dom.Snapshot{}, malformed(fmt.Errorf("task %d has no id", i))
		}
		if !t.Status.Valid() {
			return dom.Snapshot{}, malformed(fmt.Errorf("task %s has unknown status %q", t.ID, t.Status))
		}
	}
	return dom.Snapshot{Tasks: *w.Tasks, Settings: w.Settings}, nil
}

// Link returns base with the token set as the share fragment parameter.
func Link(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	frag, _ := url.ParseQuery(u.Fragment)
	frag.Set(FragmentParam, token)
	u.Fragment = frag.Encode()
	return u.String(), nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedToken, err)
}
