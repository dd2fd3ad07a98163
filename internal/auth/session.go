// Package auth decides which trip a session is scoped to and which remote store it may
// talk to. Both come from the launch link, the environment or the local cache.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"Tripboard/internal/cache"
	dom "Tripboard/internal/domain"
	"Tripboard/internal/share"

	"github.com/rs/zerolog"
)

const (
	ParamTrip      = "trip"
	ParamRemoteURL = "remote_url"
	ParamRemoteKey = "remote_key"
	ParamPacked    = "remote"
)

// Source says where the credential pair came from.
type Source string

const (
	SourceNone     Source = ""
	SourceConfig   Source = "config"
	SourceQuery    Source = "query"
	SourceFragment Source = "fragment"
	SourcePacked   Source = "packed"
	SourceCache    Source = "cache"
)

// Session is the result of resolving a launch.
type Session struct {
	TripID      string
	Credentials cache.Credentials
	Source      Source
	// ShareToken is the raw share fragment, if the link carried one.
	ShareToken string
	// CleanLink is the launch link without the share fragment.
	CleanLink string
}

// HasRemote reports whether a credential pair was resolved.
func (s Session) HasRemote() bool { return s.Source != SourceNone }

// Resolver resolves launches against a fixed config and a credential cache.
type Resolver struct {
	DefaultTrip string
	Config      cache.Credentials
	Store       cache.Store
	Log         zerolog.Logger
}

// Resolve reads link (which may be empty) once at startup.
// Credentials priority: config pair, query pair, fragment pair, packed param, cached pair.
// A pair taken from the link is cached for later launches.
func (r *Resolver) Resolve(ctx context.Context, link string) (Session, error) {
	sess := Session{TripID: r.DefaultTrip}
	if sess.TripID == "" {
		sess.TripID = dom.DefaultTripID
	}

	var query, fragment url.Values
	if strings.TrimSpace(link) != "" {
		u, err := url.Parse(strings.TrimSpace(link))
		if err != nil {
			return Session{}, fmt.Errorf("launch link: %w", err)
		}
		query = u.Query()
		fragment, err = url.ParseQuery(u.Fragment)
		if err != nil {
			return Session{}, fmt.Errorf("launch link fragment: %w", err)
		}
		if trip := strings.TrimSpace(query.Get(ParamTrip)); trip != "" {
			sess.TripID = trip
		}
		sess.ShareToken = fragment.Get(share.FragmentParam)
		sess.CleanLink = cleanLink(u, fragment)
	}

	creds, src := r.credentials(query, fragment)
	sess.Credentials, sess.Source = creds, src

	switch src {
	case SourceQuery, SourceFragment, SourcePacked:
		if r.Store != nil {
			if err := cache.SaveCredentials(ctx, r.Store, creds); err != nil {
				r.Log.Warn().Err(err).Msg("caching remote credentials")
			}
		}
	case SourceNone:
		if r.Store == nil {
			break
		}
		cached, ok, err := cache.LoadCredentials(ctx, r.Store)
		if err != nil {
			r.Log.Warn().Err(err).Msg("reading cached remote credentials")
		}
		if ok {
			sess.Credentials, sess.Source = cached, SourceCache
		}
	}
	return sess, nil
}

func (r *Resolver) credentials(query, fragment url.Values) (cache.Credentials, Source) {
	if complete(r.Config) {
		return trimmed(r.Config), SourceConfig
	}
	if c := pair(query); complete(c) {
		return c, SourceQuery
	}
	if c := pair(fragment); complete(c) {
		return c, SourceFragment
	}
	for _, vals := range []url.Values{query, fragment} {
		if c, ok := unpack(vals.Get(ParamPacked)); ok {
			return c, SourcePacked
		}
	}
	return cache.Credentials{}, SourceNone
}

func pair(vals url.Values) cache.Credentials {
	return trimmed(cache.Credentials{URL: vals.Get(ParamRemoteURL), Key: vals.Get(ParamRemoteKey)})
}

func trimmed(c cache.Credentials) cache.Credentials {
	return cache.Credentials{URL: strings.TrimSpace(c.URL), Key: strings.TrimSpace(c.Key)}
}

func complete(c cache.Credentials) bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.Key) != ""
}

// Pack encodes a credential pair as the single packed link parameter.
func Pack(c cache.Credentials) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func unpack(v string) (cache.Credentials, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return cache.Credentials{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(v, "="))
	if err != nil {
		return cache.Credentials{}, false
	}
	var c cache.Credentials
	if err := json.Unmarshal(raw, &c); err != nil {
		return cache.Credentials{}, false
	}
	c = trimmed(c)
	return c, complete(c)
}

func cleanLink(u *url.URL, fragment url.Values) string {
	clean := *u
	if fragment.Has(share.FragmentParam) {
		rest := url.Values{}
		for k, v := range fragment {
			if k != share.FragmentParam {
				rest[k] = v
			}
		}
		enc := rest.Encode()
		clean.Fragment, _ = url.PathUnescape(enc)
		clean.RawFragment = enc
	}
	return clean.String()
}
