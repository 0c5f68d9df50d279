package sysinfo

import (
	"context"
	"encoding/json"
	"testing"
)

// TestParseGPUCSV tests nvidia-smi CSV parsing.
func TestParseGPUCSV(t *testing.T) {
	out := "0, NVIDIA GeForce RTX 3090, 24576, 2048, 22528, 37, 61, 284.73\n" +
		"1, NVIDIA A100-SXM4-40GB, 40960, 40960, 0, 100, 74, [N/A]\n"

	gpus, err := parseGPUCSV(out)
	if err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if len(gpus) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(gpus))
	}

	first := gpus[0]
	if first.ID != 0 {
		t.Errorf("expected id 0, got %d", first.ID)
	}
	if first.Name != "NVIDIA GeForce RTX 3090" {
		t.Errorf("unexpected name: %s", first.Name)
	}
	if first.MemoryTotal != "24.00 GB" {
		t.Errorf("expected memory total 24.00 GB, got %s", first.MemoryTotal)
	}
	if first.MemoryPercent != "8.33 %" {
		t.Errorf("expected memory percent 8.33 %%, got %s", first.MemoryPercent)
	}
	if first.Utilization != "37.00 %" {
		t.Errorf("expected utilization 37.00 %%, got %s", first.Utilization)
	}
	if first.Temperature != "61.00 °C" {
		t.Errorf("expected temperature 61.00 °C, got %s", first.Temperature)
	}
	if first.Power != "284.73 W" {
		t.Errorf("expected power 284.73 W, got %s", first.Power)
	}

	second := gpus[1]
	if second.MemoryPercent != "100.00 %" {
		t.Errorf("expected memory percent 100.00 %%, got %s", second.MemoryPercent)
	}
	if second.Power != "0.00 W" {
		t.Errorf("expected unreadable power to parse as zero, got %s", second.Power)
	}
}

// TestParseGPUCSVMalformed tests rejection of unexpected lines.
func TestParseGPUCSVMalformed(t *testing.T) {
	if _, err := parseGPUCSV("0, broken line"); err == nil {
		t.Error("expected short line to fail")
	}
	if _, err := parseGPUCSV("x, name, 1, 1, 1, 1, 1, 1"); err == nil {
		t.Error("expected non-numeric index to fail")
	}

	gpus, err := parseGPUCSV("")
	if err != nil {
		t.Fatalf("failed to parse empty output: %v", err)
	}
	if len(gpus) != 0 {
		t.Errorf("expected no devices, got %d", len(gpus))
	}
}

// TestLocalCollectValidatesCategory tests category validation on the
// local collector.
func TestLocalCollectValidatesCategory(t *testing.T) {
	local := NewLocal(LocalConfig{})

	if _, err := local.Collect(context.Background(), Category("disk")); err == nil {
		t.Error("expected invalid category to fail")
	}
}

// TestLocalCollectMemory tests a real memory probe.
func TestLocalCollectMemory(t *testing.T) {
	local := NewLocal(LocalConfig{})

	snapshot, err := local.Collect(context.Background(), CategoryMemory)
	if err != nil {
		t.Fatalf("failed to collect memory snapshot: %v", err)
	}

	var info MemoryInfo
	if err := json.Unmarshal([]byte(snapshot), &info); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if info.Total == "" {
		t.Error("expected total memory to be reported")
	}
}

// TestLocalCollectGPUMissingBinary tests that a machine without
// nvidia-smi yields an empty snapshot instead of an error.
func TestLocalCollectGPUMissingBinary(t *testing.T) {
	local := NewLocal(LocalConfig{NvidiaSMIPath: "/nonexistent/nvidia-smi"})

	snapshot, err := local.Collect(context.Background(), CategoryGPU)
	if err != nil {
		t.Fatalf("expected missing binary to degrade, got error: %v", err)
	}
	if snapshot != "" {
		t.Errorf("expected empty snapshot, got %s", snapshot)
	}
}
