package script

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Parse decodes a YAML script document.
func Parse(r io.Reader) (*Script, error) {
	var s Script
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidScript)
		}
		return nil, err
	}
	return &s, nil
}

// LoadFile reads and decodes the script at path.
func LoadFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script %q: %w", path, err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse script %q: %w", path, err)
	}
	return s, nil
}

func (s *Script) UnmarshalYAML(value *yaml.Node) error {
	var doc struct {
		Settings     *settingsDoc      `yaml:"settings"`
		Instructions *[]instructionDoc `yaml:"instructions"`
	}
	if err := decodeUntagged(value, &doc); err != nil {
		return err
	}
	if doc.Instructions == nil {
		return nodeErr(value, "missing field `instructions`")
	}

	s.Settings = DefaultSettings()
	if doc.Settings != nil {
		doc.Settings.applyTo(&s.Settings)
	}
	s.Instructions = make([]Instruction, 0, len(*doc.Instructions))
	for _, in := range *doc.Instructions {
		s.Instructions = append(s.Instructions, in.Instruction)
	}
	return nil
}

type settingsDoc struct {
	Width              *uint16      `yaml:"width"`
	Height             *uint16      `yaml:"height"`
	Title              *string      `yaml:"title"`
	Shell              *shellDoc    `yaml:"shell"`
	Environment        []envVarDoc  `yaml:"environment"`
	EnvironmentCapture []string     `yaml:"environment_capture"`
	TypeSpeed          *durationDoc `yaml:"type_speed"`
	Prompt             *string      `yaml:"prompt"`
	SecondaryPrompt    *string      `yaml:"secondary_prompt"`
	Timeout            *durationDoc `yaml:"timeout"`
}

func (d *settingsDoc) applyTo(s *Settings) {
	s.Width = d.Width
	s.Height = d.Height
	if d.Title != nil {
		s.Title = *d.Title
	}
	if d.Shell != nil {
		s.Shell = d.Shell.Shell
	}
	for _, env := range d.Environment {
		s.Environment = append(s.Environment, env.EnvVar)
	}
	s.EnvironmentCapture = append(s.EnvironmentCapture, d.EnvironmentCapture...)
	if d.TypeSpeed != nil {
		s.TypeSpeed = time.Duration(*d.TypeSpeed)
	}
	if d.Prompt != nil {
		s.Prompt = *d.Prompt
	}
	if d.SecondaryPrompt != nil {
		s.SecondaryPrompt = *d.SecondaryPrompt
	}
	if d.Timeout != nil {
		s.Timeout = time.Duration(*d.Timeout)
	}
}

type durationDoc time.Duration

func (d *durationDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return nodeErr(value, "expected a duration string with 's', 'ms', or 'us' suffix")
	}
	parsed, err := ParseDuration(value.Value)
	if err != nil {
		return wrapNodeErr(value, err)
	}
	*d = durationDoc(parsed)
	return nil
}

type envVarDoc struct{ EnvVar }

func (e *envVarDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		e.EnvVar = ParseEnvVar(value.Value)
		return nil
	}
	var raw struct {
		Name  *string `yaml:"name"`
		Value string  `yaml:"value"`
	}
	if err := decodeUntagged(value, &raw); err != nil {
		return err
	}
	if raw.Name == nil {
		return nodeErr(value, "missing field `name`")
	}
	e.EnvVar = EnvVar{Name: *raw.Name, Value: raw.Value}
	return nil
}

type shellDoc struct{ Shell }

func (s *shellDoc) UnmarshalYAML(value *yaml.Node) error {
	shell, err := decodeShell(value)
	if err != nil {
		return err
	}
	s.Shell = shell
	return nil
}

func decodeShell(value *yaml.Node) (Shell, error) {
	switch tag := customTag(value); tag {
	case "Bash":
		return Bash(), nil
	case "Python":
		return Python(), nil
	case "Custom":
		return decodeCustomShell(value)
	case "":
	default:
		return Shell{}, nodeErr(value, "unknown shell variant !%s", tag)
	}

	switch value.Kind {
	case yaml.ScalarNode:
		shell, err := ParseShell(value.Value)
		return shell, wrapNodeErr(value, err)
	case yaml.MappingNode:
		if variant, inner, ok := singleKey(value); ok && (variant == "Bash" || variant == "Python" || variant == "Custom") {
			return decodeShell(retag(inner, variant))
		}
		return decodeCustomShell(value)
	default:
		return Shell{}, nodeErr(value, "expected a string, map, or enum for shell")
	}
}

func decodeCustomShell(value *yaml.Node) (Shell, error) {
	var raw struct {
		Program     *string  `yaml:"program"`
		Args        []string `yaml:"args"`
		Prompt      *string  `yaml:"prompt"`
		LineSplit   *string  `yaml:"line_split"`
		QuitCommand *string  `yaml:"quit_command"`
		Echo        string   `yaml:"echo"`
	}
	if value.Kind != yaml.MappingNode {
		return Shell{}, nodeErr(value, "expected a map for custom shell")
	}
	if err := decodeUntagged(value, &raw); err != nil {
		return Shell{}, err
	}
	switch {
	case raw.Program == nil:
		return Shell{}, nodeErr(value, "missing field `program`")
	case raw.Prompt == nil:
		return Shell{}, nodeErr(value, "missing field `prompt`")
	case raw.LineSplit == nil:
		return Shell{}, nodeErr(value, "missing field `line_split`")
	}
	echo, err := ParseEchoMode(raw.Echo)
	if err != nil {
		return Shell{}, wrapNodeErr(value, err)
	}
	return Shell{
		Kind:        ShellCustom,
		Program:     *raw.Program,
		Args:        raw.Args,
		Prompt:      *raw.Prompt,
		LineSplit:   *raw.LineSplit,
		QuitCommand: raw.QuitCommand,
		Echo:        echo,
	}, nil
}

type instructionDoc struct{ Instruction }

func (in *instructionDoc) UnmarshalYAML(value *yaml.Node) error {
	decoded, err := decodeInstruction(value)
	if err != nil {
		return err
	}
	in.Instruction = decoded
	return nil
}

var instructionVariants = map[string]string{
	"Command": "Command", "command": "Command",
	"Interactive": "Interactive", "interactive": "Interactive",
	"Wait": "Wait", "wait": "Wait",
	"Marker": "Marker", "marker": "Marker",
	"Clear": "Clear", "clear": "Clear",
}

func decodeInstruction(value *yaml.Node) (Instruction, error) {
	switch tag := customTag(value); tag {
	case "Command":
		return decodeRunCommand(value)
	case "Interactive":
		return decodeInteractive(value)
	case "Wait":
		if value.Kind != yaml.ScalarNode {
			return nil, nodeErr(value, "!Wait expects a duration string")
		}
		d, err := ParseDuration(value.Value)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return Wait{Duration: d}, nil
	case "Marker":
		if value.Kind != yaml.ScalarNode {
			return nil, nodeErr(value, "!Marker expects a string")
		}
		return Marker{Label: value.Value}, nil
	case "Clear":
		return Clear{}, nil
	case "":
	default:
		return nil, nodeErr(value, "unknown instruction !%s", tag)
	}

	switch value.Kind {
	case yaml.ScalarNode:
		if value.Value == "clear" || value.Value == "Clear" {
			return Clear{}, nil
		}
		return nil, nodeErr(value, "unknown instruction %q", value.Value)
	case yaml.MappingNode:
		key, inner, ok := singleKey(value)
		if variant, known := instructionVariants[key]; ok && known {
			// `command: ls` reads as a command body, not a variant wrapper.
			if variant == "Command" && inner.Kind != yaml.MappingNode {
				return decodeRunCommand(value)
			}
			return decodeInstruction(retag(inner, variant))
		}
		if hasKey(value, "keys") {
			return decodeInteractive(value)
		}
		if hasKey(value, "command") {
			return decodeRunCommand(value)
		}
		return nil, nodeErr(value, "cannot determine instruction kind")
	default:
		return nil, nodeErr(value, "expected an instruction")
	}
}

func decodeRunCommand(value *yaml.Node) (Instruction, error) {
	var raw struct {
		Command   *commandDoc  `yaml:"command"`
		Hidden    bool         `yaml:"hidden"`
		TypeSpeed *durationDoc `yaml:"type_speed"`
	}
	if value.Kind != yaml.MappingNode {
		return nil, nodeErr(value, "!Command expects a map")
	}
	if err := decodeUntagged(value, &raw); err != nil {
		return nil, err
	}
	if raw.Command == nil {
		return nil, nodeErr(value, "missing field `command`")
	}
	return RunCommand{
		Command:   raw.Command.Command,
		Hidden:    raw.Hidden,
		TypeSpeed: (*time.Duration)(raw.TypeSpeed),
	}, nil
}

func decodeInteractive(value *yaml.Node) (Instruction, error) {
	var raw struct {
		Command   *commandDoc  `yaml:"command"`
		Keys      *[]keyDoc    `yaml:"keys"`
		TypeSpeed *durationDoc `yaml:"type_speed"`
	}
	if value.Kind != yaml.MappingNode {
		return nil, nodeErr(value, "!Interactive expects a map")
	}
	if err := decodeUntagged(value, &raw); err != nil {
		return nil, err
	}
	if raw.Command == nil {
		return nil, nodeErr(value, "missing field `command`")
	}
	if raw.Keys == nil {
		return nil, nodeErr(value, "missing field `keys`")
	}
	keys := make([]Key, 0, len(*raw.Keys))
	for _, k := range *raw.Keys {
		keys = append(keys, k.Key)
	}
	return Interactive{
		Command:   raw.Command.Command,
		Keys:      keys,
		TypeSpeed: (*time.Duration)(raw.TypeSpeed),
	}, nil
}

type commandDoc struct{ Command }

func (c *commandDoc) UnmarshalYAML(value *yaml.Node) error {
	cmd, err := decodeCommand(value)
	if err != nil {
		return err
	}
	c.Command = cmd
	return nil
}

func decodeCommand(value *yaml.Node) (Command, error) {
	switch tag := customTag(value); tag {
	case "SingleLine":
		if value.Kind != yaml.ScalarNode {
			return nil, nodeErr(value, "!SingleLine expects a single line string")
		}
		if strings.Contains(value.Value, "\n") {
			return nil, nodeErr(value, "invalid value %q, expected single line string", value.Value)
		}
		return SingleLine{Text: value.Value}, nil
	case "MultiLine":
		lines, err := scalarList(value)
		if err != nil {
			return nil, err
		}
		return MultiLine{Lines: lines}, nil
	case "Control":
		if value.Kind != yaml.ScalarNode {
			return nil, nodeErr(value, "!Control expects a single control char")
		}
		code, err := ParseControlCode(value.Value)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return ControlCommand{Code: code}, nil
	case "":
	default:
		return nil, nodeErr(value, "unknown command variant !%s", tag)
	}

	switch value.Kind {
	case yaml.ScalarNode:
		return parseCommandString(value)
	case yaml.SequenceNode:
		lines, err := scalarList(value)
		if err != nil {
			return nil, err
		}
		return MultiLine{Lines: lines}, nil
	case yaml.MappingNode:
		if variant, inner, ok := singleKey(value); ok {
			switch variant {
			case "SingleLine", "MultiLine", "Control":
				return decodeCommand(retag(inner, variant))
			}
		}
		return nil, nodeErr(value, "expected a string or enum for command")
	default:
		return nil, nodeErr(value, "expected a string or enum for command")
	}
}

func parseCommandString(value *yaml.Node) (Command, error) {
	v := value.Value
	if rest, ok := strings.CutPrefix(v, "^"); ok {
		code, err := ParseControlCode(rest)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return ControlCommand{Code: code}, nil
	}
	if strings.Contains(v, "\n") {
		return MultiLine{Lines: splitLines(v)}, nil
	}
	return SingleLine{Text: v}, nil
}

// splitLines splits on '\n', drops a '\r' before each break, and ignores a
// trailing empty line.
func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

type keyDoc struct{ Key }

func (k *keyDoc) UnmarshalYAML(value *yaml.Node) error {
	key, err := decodeKey(value)
	if err != nil {
		return err
	}
	k.Key = key
	return nil
}

func decodeKey(value *yaml.Node) (Key, error) {
	tag := customTag(value)
	if value.Kind == yaml.MappingNode && tag == "" {
		if variant, inner, ok := singleKey(value); ok {
			switch variant {
			case "Char", "Str", "Control", "Wait":
				return decodeKey(retag(inner, variant))
			}
		}
		return nil, nodeErr(value, "expected char, control char, duration string, or enum for key")
	}
	if value.Kind != yaml.ScalarNode {
		return nil, nodeErr(value, "expected char, control char, duration string, or enum for key")
	}

	v := value.Value
	switch tag {
	case "Char":
		r, size := utf8.DecodeRuneInString(v)
		if size == 0 || size != len(v) {
			return nil, nodeErr(value, "invalid value %q, expected a single char", v)
		}
		return KeyChar{Char: r}, nil
	case "Str":
		return KeyString{Text: v}, nil
	case "Control":
		code, err := ParseControlCode(v)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return KeyControl{Code: code}, nil
	case "Wait":
		d, err := ParseDuration(v)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return KeyWait{Duration: d}, nil
	case "":
	default:
		return nil, nodeErr(value, "unknown key variant !%s", tag)
	}

	if rest, ok := strings.CutPrefix(v, "^"); ok {
		code, err := ParseControlCode(rest)
		if err != nil {
			return nil, wrapNodeErr(value, err)
		}
		return KeyControl{Code: code}, nil
	}
	if rest, ok := strings.CutPrefix(v, "!Str "); ok {
		return KeyString{Text: rest}, nil
	}
	if r, size := utf8.DecodeRuneInString(v); size > 0 && size == len(v) {
		return KeyChar{Char: r}, nil
	}
	d, err := ParseDuration(v)
	if err != nil {
		return nil, wrapNodeErr(value, err)
	}
	return KeyWait{Duration: d}, nil
}

// customTag returns the application tag of a node without its leading '!',
// or "" for untagged nodes and core schema tags such as !!str.
func customTag(n *yaml.Node) string {
	if n.Tag == "" || strings.HasPrefix(n.Tag, "!!") || n.Tag == "!" {
		return ""
	}
	return strings.TrimPrefix(n.Tag, "!")
}

// retag returns a copy of n carrying the application tag variant.
func retag(n *yaml.Node, variant string) *yaml.Node {
	c := *n
	c.Tag = "!" + variant
	return &c
}

// decodeUntagged decodes n into out ignoring any application tag, which
// yaml.v3 would otherwise reject for plain Go targets.
func decodeUntagged(n *yaml.Node, out any) error {
	if customTag(n) == "" {
		return n.Decode(out)
	}
	c := *n
	switch c.Kind {
	case yaml.MappingNode:
		c.Tag = "!!map"
	case yaml.SequenceNode:
		c.Tag = "!!seq"
	default:
		c.Tag = "!!str"
	}
	return c.Decode(out)
}

func singleKey(n *yaml.Node) (string, *yaml.Node, bool) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, false
	}
	return n.Content[0].Value, n.Content[1], true
}

func hasKey(n *yaml.Node, key string) bool {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return true
		}
	}
	return false
}

func scalarList(n *yaml.Node) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, nodeErr(n, "expected a list of lines")
	}
	lines := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, nodeErr(item, "expected a string line")
		}
		lines = append(lines, item.Value)
	}
	return lines, nil
}

func nodeErr(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidScript, n.Line, fmt.Sprintf(format, args...))
}

func wrapNodeErr(n *yaml.Node, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("line %d: %w", n.Line, err)
}
