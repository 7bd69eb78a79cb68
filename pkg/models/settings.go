package models

import "slices"

// DefaultModel is the completion model used until the user picks another one.
const DefaultModel = "anthropic/claude-4-sonnet"

// Settings is the singleton record of user preferences.
type Settings struct {
	OpenRouterAPIKey   string   `json:"openrouterApiKey"`
	DefaultModel       string   `json:"defaultModel"`
	CustomModels       []string `json:"customModels"`
	AIAssistantEnabled bool     `json:"aiAssistantEnabled"`
	DefaultLanguage    string   `json:"defaultLanguage" validate:"omitempty,len=2"`
	CurrentPageID      *PageID  `json:"currentPageId"`
}

// DefaultSettings returns the settings a fresh installation starts with.
func DefaultSettings() Settings {
	return Settings{
		DefaultModel:       DefaultModel,
		CustomModels:       []string{},
		AIAssistantEnabled: true,
		DefaultLanguage:    "en",
	}
}

// APIKeyConfigured reports whether an API key for the assistant has been set.
func (s Settings) APIKeyConfigured() bool {
	return s.OpenRouterAPIKey != ""
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	c := s
	c.CustomModels = slices.Clone(s.CustomModels)
	if c.CustomModels == nil {
		c.CustomModels = []string{}
	}
	if s.CurrentPageID != nil {
		id := *s.CurrentPageID
		c.CurrentPageID = &id
	}
	return c
}

// SettingsUpdate is a partial update of the settings. Nil fields are left
// untouched. ClearCurrentPage unsets the current page and wins over
// CurrentPageID.
type SettingsUpdate struct {
	OpenRouterAPIKey   *string
	DefaultModel       *string
	CustomModels       *[]string
	AIAssistantEnabled *bool
	DefaultLanguage    *string
	CurrentPageID      *PageID
	ClearCurrentPage   bool
}

// Apply merges the update into s.
func (u SettingsUpdate) Apply(s *Settings) {
	if u.OpenRouterAPIKey != nil {
		s.OpenRouterAPIKey = *u.OpenRouterAPIKey
	}
	if u.DefaultModel != nil {
		s.DefaultModel = *u.DefaultModel
	}
	if u.CustomModels != nil {
		s.CustomModels = slices.Clone(*u.CustomModels)
	}
	if u.AIAssistantEnabled != nil {
		s.AIAssistantEnabled = *u.AIAssistantEnabled
	}
	if u.DefaultLanguage != nil {
		s.DefaultLanguage = *u.DefaultLanguage
	}
	switch {
	case u.ClearCurrentPage:
		s.CurrentPageID = nil
	case u.CurrentPageID != nil:
		id := *u.CurrentPageID
		s.CurrentPageID = &id
	}
}

// SelectPage returns an update that moves the current page to id, or clears it
// when id is nil.
func SelectPage(id *PageID) SettingsUpdate {
	if id == nil {
		return SettingsUpdate{ClearCurrentPage: true}
	}
	return SettingsUpdate{CurrentPageID: id}
}
