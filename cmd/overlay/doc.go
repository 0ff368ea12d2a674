// Command overlay drives the overlay renderer from the command line.
//
// The session subcommand keeps a renderer client alive and reads line
// commands from stdin, which is how an input method or a script talks to the
// renderer. One-shot subcommands start, inspect and stop the renderer and
// print the launch journal.
package main
