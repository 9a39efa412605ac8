package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/intygscan/internal/ocr"
	"github.com/MeKo-Tech/intygscan/internal/testutil"
)

// binary resolves the CLI built by TestMain.
func binary() string {
	if bin := os.Getenv("INTYGSCAN_BIN"); bin != "" {
		return bin
	}
	return "intygscan"
}

// iRunCommand executes a command and stores the result. A leading
// "intygscan" runs the built binary.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = testCtx.substitute(command)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "intygscan" {
		parts[0] = binary()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...) //nolint:gosec // G204: commands come from feature files
	cmd.Dir = testCtx.TempDir
	cmd.Env = append(os.Environ(), testCtx.EnvVars...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastStdout = stdout.String()
	testCtx.LastOutput = stdout.String() + stderr.String()
	testCtx.LastError = err

	testCtx.LastExitCode = 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, testCtx.substitute(expectedText)) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// stdoutJSON decodes standard output. Logs go to stderr and never mix in.
func (testCtx *TestContext) stdoutJSON() (any, error) {
	var v any
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastStdout)
	}
	return v, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.stdoutJSON()
	return err
}

func (testCtx *TestContext) theJSONShouldContain(field string) error {
	v, err := testCtx.stdoutJSON()
	if err != nil {
		return err
	}
	_, err = lookupPath(v, field)
	return err
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, want string) error {
	v, err := testCtx.stdoutJSON()
	if err != nil {
		return err
	}
	return expectField(v, field, want)
}

func (testCtx *TestContext) theJSONArrayShouldHaveItems(n int) error {
	v, err := testCtx.stdoutJSON()
	if err != nil {
		return err
	}
	arr, ok := v.([]any)
	if !ok {
		return fmt.Errorf("output is not a JSON array: %s", testCtx.LastStdout)
	}
	if len(arr) != n {
		return fmt.Errorf("expected %d items, got %d", n, len(arr))
	}
	return nil
}

// lookupPath follows a dotted path; numeric parts index arrays.
func lookupPath(v any, path string) (any, error) {
	cur := v
	for i, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field '%s' not found in JSON", strings.Join(strings.Split(path, ".")[:i+1], "."))
			}
			cur = next
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("bad array index '%s' in '%s'", part, path)
			}
			cur = node[idx]
		default:
			return nil, fmt.Errorf("cannot navigate into non-object at '%s'", part)
		}
	}
	return cur, nil
}

func expectField(v any, field, want string) error {
	got, err := lookupPath(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != want {
		return fmt.Errorf("field '%s' is %q, want %q", field, s, want)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("no error occurred, but expected error containing '%s'", errorText)
	}
	if !strings.Contains(strings.ToLower(testCtx.LastOutput), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not contain '%s'\nActual output: %s", errorText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	path := testCtx.resolve(name)
	if !testutil.FileExists(path) {
		return fmt.Errorf("file %s does not exist", path)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, text string) error {
	data, err := os.ReadFile(testCtx.resolve(name)) //nolint:gosec // G304: path inside the scenario temp dir
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), text) {
		return fmt.Errorf("file %s does not contain '%s'", name, text)
	}
	return nil
}

func (testCtx *TestContext) resolve(name string) string {
	name = testCtx.substitute(name)
	if filepath.IsAbs(name) {
		return name
	}
	return testCtx.TempPath(name)
}

// aSavedScanOf writes a named certificate fixture as a scan JSON file.
func (testCtx *TestContext) aSavedScanOf(name, fixture string) error {
	for _, f := range testutil.Fixtures() {
		if f.Name == fixture {
			return writeScan(testCtx.resolve(name), ocr.Result{Text: f.Text})
		}
	}
	return fmt.Errorf("unknown fixture %q", fixture)
}

func (testCtx *TestContext) aSavedScanWithText(name string, text *godog.DocString) error {
	return writeScan(testCtx.resolve(name), ocr.Result{Text: text.Content})
}

func (testCtx *TestContext) aTextFileWith(name string, text *godog.DocString) error {
	return writeFile(testCtx.resolve(name), []byte(text.Content))
}

func (testCtx *TestContext) aBlankPhoto(name string) error {
	return writeFile(testCtx.resolve(name), blankPNG())
}

func writeScan(path string, scan ocr.Result) error {
	b, err := json.Marshal(scan)
	if err != nil {
		return err
	}
	return writeFile(path, b)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
}

func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the JSON array should have (\d+) items?$`, testCtx.theJSONArrayShouldHaveItems)
}

func (testCtx *TestContext) registerFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a saved scan "([^"]*)" of the "([^"]*)" certificate$`, testCtx.aSavedScanOf)
	sc.Step(`^a saved scan "([^"]*)" with text:$`, testCtx.aSavedScanWithText)
	sc.Step(`^a text file "([^"]*)" with:$`, testCtx.aTextFileWith)
	sc.Step(`^a blank photo "([^"]*)"$`, testCtx.aBlankPhoto)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

// RegisterCommonSteps registers all command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
	testCtx.registerFileSteps(sc)
}
