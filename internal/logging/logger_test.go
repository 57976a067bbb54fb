package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func reset() {
	CloseAll()
	settingsMu.Lock()
	settings = Settings{}
	logsDir = ""
	logLevel = LevelInfo
	settingsMu.Unlock()
}

func TestInitializeDisabledIsNoOp(t *testing.T) {
	defer reset()
	dir := t.TempDir()

	if err := Initialize(dir, Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	Session("should go nowhere")

	if _, err := os.Stat(filepath.Join(dir, ".hireloop", "logs")); !os.IsNotExist(err) {
		t.Error("disabled logging should not create the logs directory")
	}
}

func TestInitializeWritesCategoryFiles(t *testing.T) {
	defer reset()
	dir := t.TempDir()

	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	Session("session line %d", 1)
	RouterDebug("router line")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, ".hireloop", "logs", date+"_session.log"))
	if err != nil {
		t.Fatalf("session log not written: %v", err)
	}
	if !strings.Contains(string(data), "session line 1") {
		t.Errorf("session log missing entry: %q", data)
	}
}

func TestCategoryToggle(t *testing.T) {
	defer reset()
	dir := t.TempDir()

	err := Initialize(dir, Settings{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"policy": false},
	})
	if err != nil {
		t.Fatal(err)
	}

	if IsCategoryEnabled(CategoryPolicy) {
		t.Error("policy category should be disabled")
	}
	if !IsCategoryEnabled(CategorySession) {
		t.Error("unlisted categories default to enabled")
	}

	Policy("dropped")
	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(dir, ".hireloop", "logs", date+"_policy.log")); !os.IsNotExist(err) {
		t.Error("disabled category should not create a log file")
	}
}

func TestLevelFiltering(t *testing.T) {
	defer reset()
	dir := t.TempDir()

	if err := Initialize(dir, Settings{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatal(err)
	}
	Session("info is filtered")
	Get(CategorySession).Warn("warn passes")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, ".hireloop", "logs", date+"_session.log"))
	if err != nil {
		t.Fatalf("session log not written: %v", err)
	}
	if strings.Contains(string(data), "info is filtered") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(string(data), "warn passes") {
		t.Error("warn line should be written")
	}
}
