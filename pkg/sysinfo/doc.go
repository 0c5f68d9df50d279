// Package sysinfo captures machine telemetry for the system fields:
// computer, cpu, memory, gpu and host snapshots serialized as JSON.
// The local collector reads hardware state through gopsutil and asks
// nvidia-smi for GPU devices.
package sysinfo
