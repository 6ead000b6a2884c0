package render

import "github.com/mhalder/overbot/internal/overseerr"

// SearchResultsView backs the search results listing.
type SearchResultsView struct {
	Term    string
	Results []*overseerr.SearchResult
	Skip    int
	Total   int
}

// SearchDetailsView backs the detail view for one search hit.
type SearchDetailsView struct {
	Result  *overseerr.SearchResult
	SiteURL string
}

// RequestsResultsView backs the request listing.
type RequestsResultsView struct {
	Kind    string
	Results []*overseerr.Request
	Skip    int
	Total   int
}

// RequestsDetailsView backs the detail view for one request.
type RequestsDetailsView struct {
	Result  *overseerr.Request
	SiteURL string
}

// ProfilePromptView backs the quality profile selection prompt.
type ProfilePromptView struct {
	Profiles []overseerr.Profile
}

// FolderPromptView backs the root folder selection prompt.
type FolderPromptView struct {
	RootFolders []overseerr.RootFolder
}

// RequestDoneView backs the request confirmation.
type RequestDoneView struct {
	Result     *overseerr.SearchResult
	Profile    overseerr.Profile
	RootFolder overseerr.RootFolder
}

// HelpView backs the command overview.
type HelpView struct {
	BotName string
}

// LoginView backs the Plex login prompt.
type LoginView struct {
	AuthURL string
}

// NotifyView backs webhook notifications.
type NotifyView struct {
	Event   string
	Subject string
	Message string
	Image   string
}
