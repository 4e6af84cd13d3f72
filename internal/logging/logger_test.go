package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureSinksToWriter(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, zerolog.DebugLevel)
	defer Configure(bufDiscard(), zerolog.InfoLevel)

	Info("boot sequence starting")

	output := buf.String()
	if !strings.Contains(output, "boot sequence starting") {
		t.Errorf("expected message in output, got: %s", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, zerolog.WarnLevel)
	defer Configure(bufDiscard(), zerolog.InfoLevel)

	Info("should be filtered")
	if strings.Contains(buf.String(), "should be filtered") {
		t.Errorf("info message should not pass a warn-level filter")
	}

	Warn("should pass")
	if !strings.Contains(buf.String(), "should pass") {
		t.Errorf("expected warn message to pass, got: %s", buf.String())
	}
}

func TestWithComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	Configure(&buf, zerolog.DebugLevel)
	defer Configure(bufDiscard(), zerolog.InfoLevel)

	WithComponent("sched").Info().Msg("tick")

	output := buf.String()
	if !strings.Contains(output, `"component":"sched"`) {
		t.Errorf("expected component field in output, got: %s", output)
	}
}

func bufDiscard() *bytes.Buffer { return &bytes.Buffer{} }
