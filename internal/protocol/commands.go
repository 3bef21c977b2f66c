package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ошибки разбора команд клиента
var (
	ErrEmptyLine      = errors.New("empty line")
	ErrMalformed      = errors.New("malformed command")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidName    = errors.New("invalid player name")
)

// MaxNameLength предел длины имени игрока в символах
const MaxNameLength = 24

// CommandType имя команды клиента
type CommandType string

const (
	CmdInput   CommandType = "INPUT"
	CmdSetTile CommandType = "SET_TILE"
	CmdUseItem CommandType = "USE_ITEM"
	CmdSetName CommandType = "SETNAME"
)

// Command разобранная команда клиента. Координаты Y - в системе клиента (снизу вверх).
type Command struct {
	Type CommandType

	// INPUT / SETNAME
	PlayerID int
	Action   string
	Name     string

	// SET_TILE / USE_ITEM
	X, Y   int
	TileID int
	Layer  int
	Slot   int
}

// Parse разбирает строку вида NAME,arg1,arg2,...
func Parse(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, ErrEmptyLine
	}

	fields := strings.Split(line, ",")
	cmd := Command{Type: CommandType(fields[0])}
	args := fields[1:]

	switch cmd.Type {
	case CmdInput:
		if len(args) < 2 {
			return cmd, fmt.Errorf("%w: %s expects 2 fields, got %d", ErrMalformed, cmd.Type, len(args))
		}
		id, err := parseInt(cmd.Type, "playerId", args[0])
		if err != nil {
			return cmd, err
		}
		cmd.PlayerID = id
		cmd.Action = strings.TrimSpace(args[1])

	case CmdSetTile:
		if len(args) < 4 {
			return cmd, fmt.Errorf("%w: %s expects 4 fields, got %d", ErrMalformed, cmd.Type, len(args))
		}
		vals, err := parseInts(cmd.Type, []string{"x", "y", "typeId", "layer"}, args[:4])
		if err != nil {
			return cmd, err
		}
		cmd.X, cmd.Y, cmd.TileID, cmd.Layer = vals[0], vals[1], vals[2], vals[3]

	case CmdSetName:
		// имя - остаток строки, запятые в нём допустимы
		parts := strings.SplitN(line, ",", 3)
		if len(parts) < 3 {
			return cmd, fmt.Errorf("%w: %s expects 2 fields, got %d", ErrMalformed, cmd.Type, len(parts)-1)
		}
		id, err := parseInt(cmd.Type, "playerId", parts[1])
		if err != nil {
			return cmd, err
		}
		name, err := ValidateName(parts[2])
		if err != nil {
			return cmd, err
		}
		cmd.PlayerID, cmd.Name = id, name

	case CmdUseItem:
		if len(args) < 3 {
			return cmd, fmt.Errorf("%w: %s expects 3 fields, got %d", ErrMalformed, cmd.Type, len(args))
		}
		vals, err := parseInts(cmd.Type, []string{"slot", "x", "y"}, args[:3])
		if err != nil {
			return cmd, err
		}
		cmd.Slot, cmd.X, cmd.Y = vals[0], vals[1], vals[2]

	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}

	return cmd, nil
}

// ValidateName обрезает пробелы и проверяет имя: непустое, не длиннее
// MaxNameLength символов, без управляющих символов и '|'
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: not utf-8", ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("%w: %d characters, max %d", ErrInvalidName, n, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '|' {
			return "", fmt.Errorf("%w: forbidden character %q", ErrInvalidName, r)
		}
	}
	return name, nil
}

func parseInt(cmd CommandType, name, raw string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s field %s=%q is not a number", ErrMalformed, cmd, name, raw)
	}
	return v, nil
}

func parseInts(cmd CommandType, names, raw []string) ([]int, error) {
	out := make([]int, len(raw))
	for i := range raw {
		v, err := parseInt(cmd, names[i], raw[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
