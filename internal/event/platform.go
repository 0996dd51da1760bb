package event

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	gogithub "github.com/google/go-github/v60/github"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// LoadPlatform reads GitHub Actions metadata through lookup. The event
// payload at GITHUB_EVENT_PATH, when present, supplies the push and pull
// request commit SHAs.
func LoadPlatform(lookup LookupFunc) (Platform, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	p := Platform{
		EventName:      get("GITHUB_EVENT_NAME"),
		SHA:            get("GITHUB_SHA"),
		Ref:            get("GITHUB_REF"),
		Repository:     get("GITHUB_REPOSITORY"),
		CommitOverride: get("COMMIT_SHA"),
	}

	path := get("GITHUB_EVENT_PATH")
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("reading event payload: %w", err)
	}
	if err := decodePayload(&p, data); err != nil {
		return p, fmt.Errorf("decoding %s event payload: %w", p.EventName, err)
	}
	return p, nil
}

func decodePayload(p *Platform, data []byte) error {
	switch {
	case p.IsPullRequest():
		var evt gogithub.PullRequestEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return err
		}
		p.PRNumber = evt.GetNumber()
		if pr := evt.GetPullRequest(); pr != nil {
			if p.PRNumber == 0 {
				p.PRNumber = pr.GetNumber()
			}
			p.PRHeadSHA = pr.GetHead().GetSHA()
			p.PRHeadRef = pr.GetHead().GetRef()
			p.PRBaseSHA = pr.GetBase().GetSHA()
		}
	case p.EventName == "push":
		var evt gogithub.PushEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return err
		}
		p.Before = evt.GetBefore()
		p.After = evt.GetAfter()
	}
	return nil
}

func splitRepository(full string) (string, string) {
	parts := strings.SplitN(full, "/", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
