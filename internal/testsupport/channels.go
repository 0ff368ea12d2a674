package testsupport

import (
	"sync"
	"time"

	"overlay/internal/ipc"
	"overlay/internal/protocol"
)

// ChannelState describes what the next opened FakeChannel reports.
type ChannelState struct {
	Connected       bool
	LastError       ipc.ErrorKind
	ProtocolVersion int
	ProductVersion  string
	CallErr         error
}

// FakeChannels is an in-memory ipc.ChannelFactory that records every open
// and every delivered command.
type FakeChannels struct {
	mu     sync.Mutex
	state  ChannelState
	opens  []OpenCall
	calls  []protocol.Command
	closes int
}

// OpenCall captures the arguments of one NewChannel call.
type OpenCall struct {
	Name         string
	ExpectedPath string
}

// NewFakeChannels returns a factory whose channels report state.
func NewFakeChannels(state ChannelState) *FakeChannels {
	return &FakeChannels{state: state}
}

// SetState changes what channels opened from now on report.
func (f *FakeChannels) SetState(state ChannelState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
}

// NewChannel implements ipc.ChannelFactory.
func (f *FakeChannels) NewChannel(name, expectedPath string) ipc.Channel {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens = append(f.opens, OpenCall{Name: name, ExpectedPath: expectedPath})
	return &fakeChannel{owner: f, state: f.state}
}

// Opens returns the recorded NewChannel calls.
func (f *FakeChannels) Opens() []OpenCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]OpenCall(nil), f.opens...)
}

// Calls returns the commands passed to Call on connected channels.
func (f *FakeChannels) Calls() []protocol.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Command(nil), f.calls...)
}

// Closes returns how many channels were closed.
func (f *FakeChannels) Closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

type fakeChannel struct {
	owner *FakeChannels
	state ChannelState
}

func (c *fakeChannel) Connected() bool              { return c.state.Connected }
func (c *fakeChannel) LastError() ipc.ErrorKind     { return c.state.LastError }
func (c *fakeChannel) ServerProtocolVersion() int   { return c.state.ProtocolVersion }
func (c *fakeChannel) ServerProductVersion() string { return c.state.ProductVersion }

func (c *fakeChannel) Call(cmd protocol.Command, _ time.Duration) error {
	if !c.state.Connected {
		return ipc.ErrNotConnected
	}
	c.owner.mu.Lock()
	c.owner.calls = append(c.owner.calls, cmd)
	c.owner.mu.Unlock()
	return c.state.CallErr
}

func (c *fakeChannel) Close() error {
	c.owner.mu.Lock()
	c.owner.closes++
	c.owner.mu.Unlock()
	return nil
}
