package content

import (
	"context"
	"errors"
	"maps"
	"strings"
)

type Settings struct {
	SiteTitle       string            `json:"siteTitle"`
	Tagline         string            `json:"tagline,omitempty"`
	AboutText       string            `json:"aboutText,omitempty"`
	ContactEmail    string            `json:"contactEmail,omitempty"`
	CommissionsOpen bool              `json:"commissionsOpen"`
	SocialLinks     map[string]string `json:"socialLinks"`
}

func (st Settings) clone() Settings {
	st.SocialLinks = maps.Clone(st.SocialLinks)
	return st
}

func DefaultSettings() Settings {
	return Settings{SiteTitle: "Portfolio", SocialLinks: map[string]string{}}
}

// GetSettings returns the site settings, or defaults when none were saved.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	return cached(ctx, s, "settings:site", s.ttl.Settings, Settings.clone, func(ctx context.Context) (Settings, error) {
		doc, err := s.get(ctx, CollectionSettings, settingsID)
		if errors.Is(err, ErrNotFound) {
			return DefaultSettings(), nil
		}
		if err != nil {
			return Settings{}, err
		}
		out, err := fromDocument(doc, func(*Settings, string) {})
		if out.SocialLinks == nil {
			out.SocialLinks = map[string]string{}
		}
		return out, err
	})
}

func (s *Service) SaveSettings(ctx context.Context, in Settings) (Settings, error) {
	in.SiteTitle = strings.TrimSpace(in.SiteTitle)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	if in.SiteTitle == "" {
		return Settings{}, &ValidationError{Field: "siteTitle", Reason: "is required"}
	}
	if in.ContactEmail != "" && !strings.Contains(in.ContactEmail, "@") {
		return Settings{}, &ValidationError{Field: "contactEmail", Reason: "is not an email address"}
	}
	if in.SocialLinks == nil {
		in.SocialLinks = map[string]string{}
	}
	if _, err := s.save(ctx, CollectionSettings, settingsID, in); err != nil {
		return Settings{}, err
	}
	return in, nil
}
