package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/repodesk/repodesk/internal/git"
	gh "github.com/repodesk/repodesk/internal/github"
	"github.com/repodesk/repodesk/internal/runner"
)

// Renderer writes task events and listings in text or JSON lines.
type Renderer struct {
	w    io.Writer
	json bool
}

// NewRenderer returns a Renderer for format "text" or "json".
func NewRenderer(w io.Writer, format string) (*Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return &Renderer{w: w}, nil
	case "json":
		return &Renderer{w: w, json: true}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

type eventOutput struct {
	TaskID    string `json:"task_id"`
	Task      string `json:"task"`
	Seq       int    `json:"seq"`
	Kind      string `json:"kind"`
	Message   string `json:"message,omitempty"`
	Path      string `json:"path,omitempty"`
	Status    string `json:"status,omitempty"`
	Category  string `json:"category,omitempty"`
	Detail    string `json:"detail,omitempty"`
	Branch    string `json:"branch,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Event renders one runner event. Started events are only shown as JSON.
func (r *Renderer) Event(ev runner.Event) {
	if r.json {
		out := eventOutput{
			TaskID:  ev.TaskID,
			Task:    ev.Task,
			Seq:     ev.Seq,
			Kind:    string(ev.Kind),
			Message: ev.Message,
			Path:    ev.Path,
		}
		if ev.Kind == runner.EventFinished {
			out.Status = string(ev.Outcome.Status)
			out.Category = string(ev.Outcome.Category)
			out.Detail = ev.Outcome.Detail
			out.Branch = ev.Outcome.Branch
			out.Retryable = ev.Outcome.Retryable
		}
		r.encode(out)
		return
	}

	switch ev.Kind {
	case runner.EventProgress:
		fmt.Fprintf(r.w, "  %s\n", ev.Message)
	case runner.EventCloned:
		fmt.Fprintf(r.w, "  cloned into %s\n", ev.Path)
	case runner.EventFinished:
		if ev.Outcome.Succeeded() {
			fmt.Fprintf(r.w, "done: %s\n", ev.Outcome.Message)
			return
		}
		fmt.Fprintf(r.w, "failed [%s]: %s\n", ev.Outcome.Category, ev.Outcome.Message)
		if detail := strings.TrimSpace(ev.Outcome.Detail); detail != "" {
			for _, line := range strings.Split(detail, "\n") {
				fmt.Fprintf(r.w, "    %s\n", line)
			}
		}
		if ev.Outcome.Retryable {
			fmt.Fprintln(r.w, "    GitHub reported a temporary failure, try again later")
		}
	}
}

type repositoryOutput struct {
	FullName      string `json:"full_name"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch,omitempty"`
	CloneURL      string `json:"clone_url"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// Repositories renders a repository listing.
func (r *Renderer) Repositories(repos []gh.Repository) {
	if r.json {
		for _, repo := range repos {
			out := repositoryOutput{
				FullName:      repo.FullName,
				Description:   repo.Description,
				Private:       repo.Private,
				DefaultBranch: repo.DefaultBranch,
				CloneURL:      repo.CloneURL,
			}
			if !repo.UpdatedAt.IsZero() {
				out.UpdatedAt = repo.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z")
			}
			r.encode(out)
		}
		return
	}

	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVISIBILITY\tBRANCH\tDESCRIPTION")
	for _, repo := range repos {
		visibility := "public"
		if repo.Private {
			visibility = "private"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", repo.FullName, visibility, dash(repo.DefaultBranch), dash(singleLine(repo.Description)))
	}
	_ = tw.Flush()
}

type issueOutput struct {
	Number int      `json:"number"`
	Title  string   `json:"title"`
	Author string   `json:"author,omitempty"`
	URL    string   `json:"url,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// Issues renders an issue listing.
func (r *Renderer) Issues(issues []gh.Issue) {
	if r.json {
		for _, issue := range issues {
			r.encode(issueOutput{Number: issue.Number, Title: issue.Title, Author: issue.Author, URL: issue.URL, Labels: issue.Labels})
		}
		return
	}

	if len(issues) == 0 {
		fmt.Fprintln(r.w, "No open issues.")
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tAUTHOR\tLABELS")
	for _, issue := range issues {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", issue.Number, singleLine(issue.Title), dash(issue.Author), dash(strings.Join(issue.Labels, ",")))
	}
	_ = tw.Flush()
}

type workingCopyOutput struct {
	Path         string `json:"path"`
	Initialized  bool   `json:"initialized"`
	Origin       string `json:"origin,omitempty"`
	Branch       string `json:"branch,omitempty"`
	Detached     bool   `json:"detached"`
	Unborn       bool   `json:"unborn"`
	Dirty        bool   `json:"dirty"`
	ChangedFiles int    `json:"changed_files"`
}

// WorkingCopy renders the state of a local folder.
func (r *Renderer) WorkingCopy(wc git.WorkingCopy) {
	if r.json {
		r.encode(workingCopyOutput{
			Path:         wc.Path,
			Initialized:  wc.Initialized,
			Origin:       wc.OriginURL,
			Branch:       wc.Branch,
			Detached:     wc.Detached,
			Unborn:       wc.Unborn,
			Dirty:        wc.Dirty,
			ChangedFiles: wc.ChangedFiles,
		})
		return
	}

	fmt.Fprintf(r.w, "path:    %s\n", wc.Path)
	if !wc.Initialized {
		fmt.Fprintln(r.w, "state:   not a working copy")
		return
	}

	branch := wc.Branch
	switch {
	case wc.Detached:
		branch = "(detached)"
	case wc.Unborn:
		branch += " (no commits)"
	}
	fmt.Fprintf(r.w, "origin:  %s\n", dash(wc.OriginURL))
	fmt.Fprintf(r.w, "branch:  %s\n", branch)
	if !wc.Dirty {
		fmt.Fprintln(r.w, "changes: none")
		return
	}
	fmt.Fprintf(r.w, "changes: %d files\n", wc.ChangedFiles)
}

// Identity renders the global commit identity.
func (r *Renderer) Identity(id git.Identity) {
	if r.json {
		r.encode(struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}{Name: id.Name, Email: id.Email})
		return
	}
	fmt.Fprintf(r.w, "name:  %s\nemail: %s\n", dash(id.Name), dash(id.Email))
}

func (r *Renderer) encode(v any) {
	// encoding errors on these plain structs can only come from the writer
	_ = json.NewEncoder(r.w).Encode(v)
}

func singleLine(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func dash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
