package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/tnagatomi/octonotify/internal/constants"
	"github.com/tnagatomi/octonotify/internal/model"
	"github.com/tnagatomi/octonotify/internal/scan"
)

// Sources builds REST-backed page sources for watched items.
type Sources struct {
	client *Client
}

// NewSources creates a source factory on top of the given client.
func NewSources(client *Client) *Sources {
	return &Sources{client: client}
}

// Source returns the page source for a watched item.
func (s *Sources) Source(item model.WatchedItem) scan.PageSource {
	switch item.Kind {
	case model.KindRelease:
		return &releaseSource{client: s.client, repo: item.Repo}
	case model.KindPullRequest:
		return &pullRequestSource{client: s.client, repo: item.Repo}
	default:
		return &issueSource{client: s.client, repo: item.Repo}
	}
}

// parseCursor decodes a resume cursor into a page number. An empty cursor
// selects the newest page. Page offsets are not stable across runs: items
// published after the cursor was saved shift the pages, so a resumed scan
// may re-fetch items (absorbed by the dedup FIFO) or miss ones that slid
// past the saved offset, bounded by the next scan's lookback window.
func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(cursor)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid resume cursor %q", cursor)
	}
	return page, nil
}

// pageInfo derives the cursor and rate fields of a scan.Page from a
// go-github response, and mirrors the rate budget into the global state.
func pageInfo(p *scan.Page, resp *github.Response) {
	if resp == nil {
		return
	}
	if resp.NextPage != 0 {
		p.HasMore = true
		p.NextCursor = strconv.Itoa(resp.NextPage)
	}
	p.RateRemaining = resp.Rate.Remaining
	UpdateRateLimit(resp.Rate.Remaining, resp.Rate.Limit, resp.Rate.Reset.Time)
}

// splitRepo splits "owner/name" into its parts. Config validation
// guarantees the shape.
func splitRepo(repo string) (owner, name string) {
	owner, name, _ = strings.Cut(repo, "/")
	return owner, name
}

// releaseSource pages through published releases, newest first.
type releaseSource struct {
	client *Client
	repo   string
}

func (s *releaseSource) Fetch(ctx context.Context, cursor string) (*scan.Page, error) {
	pageNum, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	owner, name := splitRepo(s.repo)

	releases, resp, err := s.client.RawClient().Repositories.ListReleases(ctx, owner, name, &github.ListOptions{
		Page:    pageNum,
		PerPage: constants.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list releases for %s: %w", s.repo, err)
	}

	page := &scan.Page{}
	for _, rel := range releases {
		page.Events = append(page.Events, convertRelease(s.repo, rel))
	}
	pageInfo(page, resp)
	return page, nil
}

// convertRelease converts a release to an event. Drafts carry no publish
// time and end up with a zero timestamp, which the scanner skips.
func convertRelease(repo string, rel *github.RepositoryRelease) model.Event {
	title := rel.GetName()
	if title == "" {
		title = rel.GetTagName()
	}
	return model.Event{
		Kind:      model.KindRelease,
		Repo:      repo,
		ID:        strconv.FormatInt(rel.GetID(), 10),
		Title:     title,
		URL:       rel.GetHTMLURL(),
		Timestamp: rel.GetPublishedAt().Time,
		Author:    rel.GetAuthor().GetLogin(),
		Extras:    map[string]string{"tag": rel.GetTagName()},
	}
}

// pullRequestSource pages through closed pull requests in update order.
// Only merged ones are emitted, stamped with their update time rather than
// the merge time: the scanner's early halt requires timestamps to descend
// in page order, and merge times do not follow the update sort. An old
// merge bumped by later activity can reappear above the threshold; the
// notified-ID FIFO keeps it from being surfaced twice.
type pullRequestSource struct {
	client *Client
	repo   string
}

func (s *pullRequestSource) Fetch(ctx context.Context, cursor string) (*scan.Page, error) {
	pageNum, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	owner, name := splitRepo(s.repo)

	prs, resp, err := s.client.RawClient().PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{
		State:     "closed",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: github.ListOptions{
			Page:    pageNum,
			PerPage: constants.PageSize,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests for %s: %w", s.repo, err)
	}

	page := &scan.Page{}
	for _, pr := range prs {
		if pr.MergedAt == nil {
			continue
		}
		page.Events = append(page.Events, convertPullRequest(s.repo, pr))
	}
	pageInfo(page, resp)
	return page, nil
}

func convertPullRequest(repo string, pr *github.PullRequest) model.Event {
	extras := map[string]string{}
	if mergedBy := pr.GetMergedBy().GetLogin(); mergedBy != "" {
		extras["merged_by"] = mergedBy
	}
	return model.Event{
		Kind:      model.KindPullRequest,
		Repo:      repo,
		ID:        strconv.Itoa(pr.GetNumber()),
		Title:     pr.GetTitle(),
		URL:       pr.GetHTMLURL(),
		Timestamp: pr.GetUpdatedAt().Time,
		Author:    pr.GetUser().GetLogin(),
		Extras:    extras,
	}
}

// issueSource pages through issues by creation time, newest first.
type issueSource struct {
	client *Client
	repo   string
}

func (s *issueSource) Fetch(ctx context.Context, cursor string) (*scan.Page, error) {
	pageNum, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	owner, name := splitRepo(s.repo)

	issues, resp, err := s.client.RawClient().Issues.ListByRepo(ctx, owner, name, &github.IssueListByRepoOptions{
		State:     "all",
		Sort:      "created",
		Direction: "desc",
		ListOptions: github.ListOptions{
			Page:    pageNum,
			PerPage: constants.PageSize,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for %s: %w", s.repo, err)
	}

	page := &scan.Page{}
	for _, issue := range issues {
		// The issues API also returns pull requests.
		if issue.IsPullRequest() {
			continue
		}
		page.Events = append(page.Events, convertIssue(s.repo, issue))
	}
	pageInfo(page, resp)
	return page, nil
}

func convertIssue(repo string, issue *github.Issue) model.Event {
	return model.Event{
		Kind:      model.KindIssue,
		Repo:      repo,
		ID:        strconv.Itoa(issue.GetNumber()),
		Title:     issue.GetTitle(),
		URL:       issue.GetHTMLURL(),
		Timestamp: issue.GetCreatedAt().Time,
		Author:    issue.GetUser().GetLogin(),
		Extras:    map[string]string{"state": issue.GetState()},
	}
}
