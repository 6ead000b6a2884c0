package flow

import (
	"context"
	"strings"

	"github.com/mhalder/overbot/internal/chat"
	"github.com/mhalder/overbot/internal/metrics"
	"github.com/mhalder/overbot/internal/overseerr"
	"github.com/mhalder/overbot/internal/render"
)

// RequestFlow returns the sub-flow that turns a selected search
// result into a media request: guard against duplicates, resolve a
// quality profile and root folder, then submit.
func RequestFlow(env Env, selected *overseerr.SearchResult, params string) Procedure {
	return func(ctx context.Context, fc *Context) error {
		return runRequest(ctx, fc, env, selected, params)
	}
}

func runRequest(ctx context.Context, fc *Context, env Env, selected *overseerr.SearchResult, params string) error {
	metrics.FlowsStarted.WithLabelValues("request").Inc()

	quality, folder := splitRequestParams(params)

	switch selected.Status() {
	case overseerr.StatusPending, overseerr.StatusProcessing, overseerr.StatusAvailable:
		return env.Respond.Reply(ctx, "This media has already been requested, bye")
	}

	var (
		info *overseerr.ServerInfo
		err  error
	)
	if selected.MediaType == overseerr.MediaTypeTV {
		info, err = env.Session.SonarrServer(ctx, 0)
	} else {
		info, err = env.Session.RadarrServer(ctx, 0)
	}
	if err != nil {
		return err
	}

	profile, err := chooseProfile(ctx, fc, env, info.Profiles, quality)
	if err != nil || profile == nil {
		return err
	}

	rootFolder, err := chooseFolder(ctx, fc, env, info.RootFolders, folder)
	if err != nil || rootFolder == nil {
		return err
	}

	_ = env.Respond.Typing(ctx)
	_, err = env.Session.CreateRequest(ctx, overseerr.CreateRequestParams{
		MediaType:  selected.MediaType,
		MediaID:    selected.ID,
		ServerID:   0,
		ProfileID:  profile.ID,
		RootFolder: rootFolder.Path,
	})
	if err != nil {
		return err
	}

	text, err := env.Render.Render("request_done", render.RequestDoneView{
		Result:     selected,
		Profile:    *profile,
		RootFolder: *rootFolder,
	})
	if err != nil {
		return err
	}
	return env.Respond.Reply(ctx, text)
}

// splitRequestParams splits free-text request params on " in " into a
// quality hint and a folder hint, both lowercased.
func splitRequestParams(params string) (quality, folder string) {
	parts := strings.SplitN(params, " in ", 2)
	quality = strings.ToLower(strings.TrimSpace(parts[0]))
	if len(parts) > 1 {
		folder = strings.ToLower(strings.TrimSpace(parts[1]))
	}
	return quality, folder
}

// chooseProfile resolves the quality profile with three-tier
// precedence: first profile whose name contains the hint, else the
// sole profile, else an interactive indexed prompt. A nil result with
// nil error means the user stopped responding.
func chooseProfile(ctx context.Context, fc *Context, env Env, profiles []overseerr.Profile, hint string) (*overseerr.Profile, error) {
	if hint != "" {
		for i := range profiles {
			if strings.Contains(strings.ToLower(profiles[i].Name), hint) {
				return &profiles[i], nil
			}
		}
	}
	if len(profiles) == 1 {
		return &profiles[0], nil
	}

	text, err := env.Render.Render("request_profile", render.ProfilePromptView{Profiles: profiles})
	if err != nil {
		return nil, err
	}
	if err := env.Respond.Reply(ctx, text); err != nil {
		return nil, err
	}

	return ReceiveAndParse(ctx, fc, func(msg chat.Message) (*overseerr.Profile, bool) {
		if p, ok := SelectIndex(profiles, msg.Text); ok {
			choice := p
			return &choice, true
		}
		return nil, false
	}, nil)
}

// chooseFolder resolves the root folder the same way chooseProfile
// resolves the profile, matching the hint against folder paths.
func chooseFolder(ctx context.Context, fc *Context, env Env, folders []overseerr.RootFolder, hint string) (*overseerr.RootFolder, error) {
	if hint != "" {
		for i := range folders {
			if strings.Contains(strings.ToLower(folders[i].Path), hint) {
				return &folders[i], nil
			}
		}
	}
	if len(folders) == 1 {
		return &folders[0], nil
	}

	text, err := env.Render.Render("request_folder", render.FolderPromptView{RootFolders: folders})
	if err != nil {
		return nil, err
	}
	if err := env.Respond.Reply(ctx, text); err != nil {
		return nil, err
	}

	return ReceiveAndParse(ctx, fc, func(msg chat.Message) (*overseerr.RootFolder, bool) {
		if f, ok := SelectIndex(folders, msg.Text); ok {
			choice := f
			return &choice, true
		}
		return nil, false
	}, nil)
}
