// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strings"
	"time"
)

// EventKind is the normalized type of an inbound GitHub webhook delivery.
// Downstream logic switches exhaustively on this enum; anything the pipeline
// does not count normalizes to KindUnknown and flows through without effect.
type EventKind int

const (
	KindUnknown EventKind = iota
	KindPullRequestMerged
	KindStarCreated
	KindIssueOpened
	KindPushCommits
)

// String returns the kind name used in logs and metrics labels.
func (k EventKind) String() string {
	switch k {
	case KindPullRequestMerged:
		return "pull_request_merged"
	case KindStarCreated:
		return "star_created"
	case KindIssueOpened:
		return "issue_opened"
	case KindPushCommits:
		return "push_commits"
	default:
		return "unknown"
	}
}

// Event is a normalized inbound notification. It is created once at ingress
// and never persisted beyond the processing window.
type Event struct {
	Kind        EventKind
	Repository  string // "owner/name"
	Actor       string // GitHub login
	CommitCount int    // only meaningful for KindPushCommits
	ReceivedAt  time.Time
	DeliveryID  string // provider idempotency token, may be empty
}

// webhookPayload mirrors the subset of the GitHub webhook body the pipeline
// reads. Everything else in the payload is ignored.
type webhookPayload struct {
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	PullRequest struct {
		Merged bool `json:"merged"`
	} `json:"pull_request"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
}

// Normalize turns a provider event type plus raw JSON body into an Event.
// Unknown provider event types are accepted and normalize to KindUnknown;
// only an unparseable body is an error.
//
// The kind mapping encodes the counting policy:
//   - pull_request counts only when the PR was closed AND merged
//   - star counts only on action "created" (deletions are ignored)
//   - issues counts only on action "opened"
//   - push always normalizes to KindPushCommits carrying the commit count
func Normalize(eventType, deliveryID string, body []byte, now time.Time) (Event, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, WrapKind("model.normalize", ErrMalformedEvent, err)
	}

	ev := Event{
		Kind:       KindUnknown,
		Repository: strings.TrimSpace(p.Repository.FullName),
		Actor:      strings.TrimSpace(p.Sender.Login),
		ReceivedAt: now.UTC(),
		DeliveryID: strings.TrimSpace(deliveryID),
	}

	switch eventType {
	case "pull_request":
		if p.Action == "closed" && p.PullRequest.Merged {
			ev.Kind = KindPullRequestMerged
		}
	case "star":
		if p.Action == "created" {
			ev.Kind = KindStarCreated
		}
	case "issues":
		if p.Action == "opened" {
			ev.Kind = KindIssueOpened
		}
	case "push":
		ev.Kind = KindPushCommits
		ev.CommitCount = len(p.Commits)
	}

	return ev, nil
}
