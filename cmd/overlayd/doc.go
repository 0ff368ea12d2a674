// Command overlayd is the renderer process started by the overlay launcher.
//
// It serves one renderer name on a Unix socket, signals the launcher's ready
// event once it accepts connections and draws every Update it receives to
// stdout. A second instance for the same name exits immediately.
package main
