// Package config defines the cluster configuration model used by the
// bootstrap and add-on subsystems.
//
// [LoadFile] reads YAML, decodes it onto [Config], fills defaults and
// validates the result. Add-on toggles given as strings are resolved to
// booleans during decoding, so every consumer sees a settled [AddonConfig].
// Timeouts come from the environment through [LoadTimeouts].
package config
