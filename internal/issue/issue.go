// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigLoadFailedId Id = iota + 1
	InterpreterNotFoundId
	PermissionDeniedId
	SpawnFailedId
	RunInProgressId
	HistoryLoadFailedId
	RecordNotFoundId
	InvalidInterpreterId
	EnvFileInvalidId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render turns the Markdown message into terminal output using the glamour
// style at stylePath ("dark", "light", "notty", or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md += "\n\n## See also\n"
		for _, link := range i.docLinks {
			md += "- <" + string(link) + ">\n"
		}
		for _, link := range i.extLinks {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.
snipr keeps running with the default configuration until the file is fixed.

## Things you can try:
- Check the file for CUE syntax errors
- Compare it with the generated defaults:
~~~
$ snipr config dump
~~~

## Example config.cue:
~~~cue
interpreter:    "shell"
shell_path:     "/bin/bash"
secondary_path: "/usr/bin/python3"
native_tool:    "swift"
env: {
	API_KEY: "xyz"
}
~~~`,
	}

	interpreterNotFoundIssue = &Issue{
		id: InterpreterNotFoundId,
		mdMsg: `
# Interpreter not found!

The configured interpreter executable does not exist.

## Things you can try:
- Point snipr at an installed interpreter:
~~~
$ snipr config set shell_path /bin/bash
$ snipr config set secondary_path "$(command -v python3)"
~~~

- Switch interpreters for a single run:
~~~
$ snipr run --interpreter shell 'echo hello'
~~~`,
		extLinks: []HttpLink{"https://www.python.org/downloads/"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The interpreter exists but could not be executed.

## Things you can try:
- Make sure the file is executable:
~~~
$ chmod +x /path/to/interpreter
~~~

- Make sure the configured path is a file and not a directory`,
	}

	spawnFailedIssue = &Issue{
		id: SpawnFailedId,
		mdMsg: `
# Failed to start the interpreter!

The process could not be spawned, so nothing was recorded in the history.
The failure is written to the run log.

## Things you can try:
- Inspect the run log:
~~~
$ snipr session log
~~~

- Review the resolved interpreter configuration:
~~~
$ snipr config show
~~~`,
	}

	runInProgressIssue = &Issue{
		id: RunInProgressId,
		mdMsg: `
# A run is already in progress!

Only one snippet runs at a time, across every snipr process on this machine.

## Things you can try:
- Wait for the current run to finish
- Cancel it with Ctrl-C in the terminal that started it`,
	}

	historyLoadFailedIssue = &Issue{
		id: HistoryLoadFailedId,
		mdMsg: `
# Failed to read the run history!

The history file is unreadable or corrupt. snipr starts with an empty history
and overwrites the file on the next completed run.

## Things you can try:
- Export what can still be read before running anything else:
~~~
$ snipr history export --format json -o backup.json
~~~`,
	}

	recordNotFoundIssue = &Issue{
		id: RecordNotFoundId,
		mdMsg: `
# Run record not found!

No history entry matches the given ID.

## Things you can try:
- List recorded runs with their IDs:
~~~
$ snipr history list
~~~

- Narrow the list with a search term:
~~~
$ snipr history list --search build
~~~`,
	}

	invalidInterpreterIssue = &Issue{
		id: InvalidInterpreterId,
		mdMsg: `
# Invalid interpreter!

The interpreter must be one of **native**, **secondary** or **shell**.

## Things you can try:
~~~
$ snipr config set interpreter shell
~~~`,
	}

	envFileInvalidIssue = &Issue{
		id: EnvFileInvalidId,
		mdMsg: `
# Invalid env file!

The dotenv file could not be parsed.

## Expected format:
~~~
# comments are ignored
API_KEY=xyz
export REGION="eu-west-1"
GREETING='hello world'
~~~`,
	}

	issues = map[Id]*Issue{
		configLoadFailedIssue.Id():    configLoadFailedIssue,
		interpreterNotFoundIssue.Id(): interpreterNotFoundIssue,
		permissionDeniedIssue.Id():    permissionDeniedIssue,
		spawnFailedIssue.Id():         spawnFailedIssue,
		runInProgressIssue.Id():       runInProgressIssue,
		historyLoadFailedIssue.Id():   historyLoadFailedIssue,
		recordNotFoundIssue.Id():      recordNotFoundIssue,
		invalidInterpreterIssue.Id():  invalidInterpreterIssue,
		envFileInvalidIssue.Id():      envFileInvalidIssue,
	}
)

// Values returns every catalog entry ordered by ID.
func Values() []*Issue {
	ids := make([]Id, 0, len(issues))
	for id := range maps.Keys(issues) {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
