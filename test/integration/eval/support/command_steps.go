package support

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/ocreval/cmd/ocreval/cmd"
	"github.com/MeKo-Tech/ocreval/internal/testutil"
	"github.com/cucumber/godog"
)

// RegisterCommandSteps registers the steps that run the CLI and check its outcome.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRun)
	sc.Step(`^the command succeeds$`, testCtx.theCommandSucceeds)
	sc.Step(`^the command fails$`, testCtx.theCommandFails)
	sc.Step(`^the error mentions "([^"]*)"$`, testCtx.theErrorMentions)
	sc.Step(`^the output contains "([^"]*)"$`, testCtx.theOutputContains)
	sc.Step(`^the file "([^"]*)" exists in the output directory$`, testCtx.theFileExistsInOutput)
}

// iRun executes the ocreval root command in-process. The command line starts
// with "ocreval" and may use the {docs}, {gt} and {out} placeholders.
func (testCtx *TestContext) iRun(command string) error {
	args := strings.Fields(testCtx.expand(command))
	if len(args) == 0 || args[0] != "ocreval" {
		return fmt.Errorf("expected an ocreval command, got %q", command)
	}
	root := cmd.NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args[1:])

	testCtx.LastArgs = args
	testCtx.LastError = root.Execute()
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	testCtx.report = nil
	return nil
}

func (testCtx *TestContext) theCommandSucceeds() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %v failed: %w\nstderr:\n%s", testCtx.LastArgs, testCtx.LastError, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandFails() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %v succeeded, expected failure", testCtx.LastArgs)
	}
	return nil
}

func (testCtx *TestContext) theErrorMentions(text string) error {
	if testCtx.LastError == nil || !strings.Contains(testCtx.LastError.Error(), text) {
		return fmt.Errorf("expected an error mentioning %q, got %v", text, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theOutputContains(text string) error {
	if !strings.Contains(testCtx.LastOutput, testCtx.expand(text)) {
		return fmt.Errorf("output does not contain %q:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theFileExistsInOutput(name string) error {
	path := filepath.Join(testCtx.OutputDir, filepath.FromSlash(name))
	if !testutil.FileExists(path) {
		return fmt.Errorf("file %s does not exist", path)
	}
	return nil
}
