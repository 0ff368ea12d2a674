package protocol

import "fmt"

// Kind identifies what the renderer should do with a command.
type Kind int

const (
	// Noop asks the renderer for nothing; used to probe and to trigger a launch.
	Noop Kind = iota
	// Update replaces what the renderer shows.
	Update
	// Shutdown asks the renderer to exit.
	Shutdown
)

func (k Kind) String() string {
	switch k {
	case Noop:
		return "noop"
	case Update:
		return "update"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Candidate is a single row in the candidate window.
type Candidate struct {
	Value      string `json:"value"`
	Annotation string `json:"annotation,omitempty"`
}

// Output is the payload of an Update command.
type Output struct {
	Preedit    string      `json:"preedit,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Focused    int         `json:"focused"`
}

// Command is the message exchanged with the renderer.
type Command struct {
	Kind    Kind    `json:"kind"`
	Visible bool    `json:"visible"`
	Output  *Output `json:"output,omitempty"`
}

// HasOutput reports whether the command carries a payload.
func (c Command) HasOutput() bool {
	return c.Output != nil
}

// NewUpdate builds a visible Update carrying output.
func NewUpdate(output Output) Command {
	return Command{Kind: Update, Visible: true, Output: &output}
}

// NewHide builds an Update that hides the renderer.
func NewHide() Command {
	return Command{Kind: Update, Visible: false}
}
