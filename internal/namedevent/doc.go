// Package namedevent lets one process wait for another to announce that it is
// ready, addressed by name rather than by pid.
//
// The waiting side binds a Unix datagram socket; the announcing side sends a
// single datagram to it. While waiting, the target pid is probed so that a
// renderer which dies before announcing is noticed without sitting out the
// whole timeout.
package namedevent
