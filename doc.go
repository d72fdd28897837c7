// Package rover is a ground station for a remotely operated rover.
//
// The rover streams short text packets over a websocket: drive packets with
// six wheel values and arm packets with six joint values. The ground station
// decodes them, folds them into the latest known robot state and keeps a log
// of everything it received.
//
// # Installation
//
//	go install github.com/gwillem/rover/cmd/rover@latest
//
// # Usage
//
// Write a configuration file, optionally with a local twin arm:
//
//	rover setup
//
// Then watch the rover:
//
//	rover monitor
//
// Without a rover at hand, serve a scripted one and point the monitor at it:
//
//	rover fake --listen localhost:8080
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/rover: CLI with setup, monitor, tail and fake commands
//   - pkg/robot: Robot state model and configuration
//   - pkg/packet: Packet decoding and encoding
//   - pkg/telemetry: State reducer and the store observers read from
//   - pkg/link: Websocket sessions and the connection manager
//   - pkg/twin: Mirrors the rover arm onto a local SO-101 arm
//   - pkg/fakerover: Scripted rover for testing
package rover
