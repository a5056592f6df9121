package agent

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/joe/twinpane/pkg/errors"
	"github.com/joe/twinpane/pkg/vfs"
)

// Tool names.
const (
	ToolListFiles  = "list_files"
	ToolCopyItem   = "copy_item"
	ToolMoveItem   = "move_item"
	ToolDeleteItem = "delete_item"
)

// Argument keys.
const (
	ArgProfileID       = "profileId"
	ArgPath            = "path"
	ArgItemID          = "itemId"
	ArgSourceProfileID = "sourceProfileId"
	ArgSourceID        = "sourceId"
	ArgTargetProfileID = "targetProfileId"
	ArgTargetPath      = "targetPath"
)

// ToolCall is one proposed call.
type ToolCall struct {
	Name string            `json:"name"`
	Args map[string]string `json:"args"`
}

// String renders the call as name(key=value, ...) with sorted keys.
func (c ToolCall) String() string {
	keys := make([]string, 0, len(c.Args))
	for key := range c.Args {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, key := range keys {
		pairs[i] = key + "=" + c.Args[key]
	}

	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(pairs, ", "))
}

func (c ToolCall) required(keys ...string) error {
	var missing []string

	for _, key := range keys {
		if c.Args[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return errors.Newf(errors.KindValidation, c.Name, "", "missing argument(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

// Proposal is what the assistant wants done: a narration and the calls to make.
type Proposal struct {
	Narration string     `json:"narration"`
	Calls     []ToolCall `json:"calls"`
}

// ParseProposal decodes a JSON proposal and checks every tool name.
func ParseProposal(data []byte) (Proposal, error) {
	var proposal Proposal
	if err := json.Unmarshal(data, &proposal); err != nil {
		return Proposal{}, errors.New(errors.KindValidation, "proposal", "", err)
	}

	for _, call := range proposal.Calls {
		if !knownTool(call.Name) {
			return Proposal{}, unknownTool(call.Name)
		}
	}

	return proposal, nil
}

// ParseCommand turns a command line into a call:
//
//	ls P [/path]
//	cp P item-id Q /target
//	mv P item-id Q /target
//	rm P item-id
func ParseCommand(line string) (ToolCall, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return ToolCall{}, errors.Newf(errors.KindValidation, "command", "", "empty command")
	}

	verb, args := strings.ToLower(fields[0]), fields[1:]

	switch verb {
	case "ls", "list":
		if len(args) < 1 || len(args) > 2 {
			return ToolCall{}, usage(verb, "ls PROFILE [PATH]")
		}

		dir := vfs.Root
		if len(args) == 2 { //nolint:mnd // profile and path
			dir = args[1]
		}

		return ToolCall{Name: ToolListFiles, Args: map[string]string{
			ArgProfileID: args[0],
			ArgPath:      vfs.CleanPath(dir),
		}}, nil
	case "cp", "copy", "mv", "move":
		if len(args) != 4 { //nolint:mnd // source profile, item, target profile, target path
			return ToolCall{}, usage(verb, verb+" PROFILE ITEM TARGET-PROFILE TARGET-PATH")
		}

		name := ToolCopyItem
		if verb == "mv" || verb == "move" {
			name = ToolMoveItem
		}

		return ToolCall{Name: name, Args: map[string]string{
			ArgSourceProfileID: args[0],
			ArgSourceID:        vfs.CleanPath(args[1]),
			ArgTargetProfileID: args[2],
			ArgTargetPath:      vfs.CleanPath(args[3]),
		}}, nil
	case "rm", "delete":
		if len(args) != 2 { //nolint:mnd // profile and item
			return ToolCall{}, usage(verb, "rm PROFILE ITEM")
		}

		return ToolCall{Name: ToolDeleteItem, Args: map[string]string{
			ArgProfileID: args[0],
			ArgItemID:    vfs.CleanPath(args[1]),
		}}, nil
	}

	return ToolCall{}, unknownTool(verb)
}

func knownTool(name string) bool {
	switch name {
	case ToolListFiles, ToolCopyItem, ToolMoveItem, ToolDeleteItem:
		return true
	}

	return false
}

func unknownTool(name string) error {
	msg := fmt.Sprintf("unknown command %q", name)
	if hint := closest(name, []string{
		ToolListFiles, ToolCopyItem, ToolMoveItem, ToolDeleteItem, "ls", "cp", "mv", "rm",
	}); hint != "" {
		msg += fmt.Sprintf("; did you mean %q?", hint)
	}

	return errors.Newf(errors.KindValidation, "command", name, "%s", msg)
}

func usage(verb, form string) error {
	return errors.Newf(errors.KindValidation, "command", verb, "usage: %s", form)
}
