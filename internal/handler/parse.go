package handler

import (
	"errors"
	"fmt"
	"strings"

	"backlog-manager/internal/backlog"
	"backlog-manager/internal/model"
	"backlog-manager/internal/view"
)

// Argument parsing errors.
var (
	ErrMissingTitle = errors.New("missing title")
	ErrMissingID    = errors.New("missing game id")
	ErrBadCallback  = errors.New("malformed callback data")
)

// ParseAddArgs parses "Title | Platform | status | price | notes".
// Only the title is required; empty fields keep their defaults.
func ParseAddArgs(payload string) (model.NewGame, error) {
	parts := strings.Split(payload, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	in := model.NewGame{Title: parts[0]}
	if in.Title == "" {
		return model.NewGame{}, ErrMissingTitle
	}
	if len(parts) > 5 {
		// Extra separators belong to the notes.
		parts[4] = strings.Join(parts[4:], " | ")
		parts = parts[:5]
	}

	if len(parts) > 1 && parts[1] != "" {
		p, err := model.ParsePlatform(parts[1])
		if err != nil {
			return model.NewGame{}, err
		}
		in.Platform = p
	}
	if len(parts) > 2 && parts[2] != "" {
		s, err := model.ParseStatus(parts[2])
		if err != nil {
			return model.NewGame{}, err
		}
		in.Status = s
	}
	if len(parts) > 3 && parts[3] != "" {
		m, err := model.ParseMoney(parts[3])
		if err != nil {
			return model.NewGame{}, err
		}
		in.Price = &m
	}
	if len(parts) > 4 {
		in.Notes = parts[4]
	}
	return in, nil
}

// ParseListArgs parses "/list" arguments: "status:<s>" and "platform:<p>" tokens,
// everything else is the search text.
func ParseListArgs(args []string) (backlog.Filter, error) {
	var status, platform string
	var query []string
	for _, a := range args {
		lower := strings.ToLower(a)
		switch {
		case strings.HasPrefix(lower, "status:"):
			status = a[len("status:"):]
		case strings.HasPrefix(lower, "platform:"):
			platform = a[len("platform:"):]
		default:
			query = append(query, a)
		}
	}
	return backlog.ParseFilter(status, platform, strings.Join(query, " "))
}

// ParseEditArgs parses "<id> field=value; field=value".
// Fields are title, platform, status, price and notes. An empty price, or
// "none", removes it; an empty platform or notes clears the field.
func ParseEditArgs(payload string) (string, model.GameUpdate, error) {
	payload = strings.TrimSpace(payload)
	id, rest, _ := strings.Cut(payload, " ")
	if id == "" {
		return "", model.GameUpdate{}, ErrMissingID
	}

	var u model.GameUpdate
	changed := false
	for _, assignment := range strings.Split(rest, ";") {
		assignment = strings.TrimSpace(assignment)
		if assignment == "" {
			continue
		}
		field, value, ok := strings.Cut(assignment, "=")
		if !ok {
			return "", model.GameUpdate{}, fmt.Errorf("expected field=value, got %q", assignment)
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(strings.TrimSpace(field)) {
		case "title":
			u.Title = &value
		case "platform":
			p := model.PlatformNone
			if value != "" {
				parsed, err := model.ParsePlatform(value)
				if err != nil {
					return "", model.GameUpdate{}, err
				}
				p = parsed
			}
			u.Platform = &p
		case "status":
			s, err := model.ParseStatus(value)
			if err != nil {
				return "", model.GameUpdate{}, err
			}
			u.Status = &s
		case "price":
			if value == "" || strings.EqualFold(value, "none") {
				u.ClearPrice = true
				break
			}
			m, err := model.ParseMoney(value)
			if err != nil {
				return "", model.GameUpdate{}, err
			}
			u.Price = &m
		case "notes", "note":
			u.Notes = &value
		default:
			return "", model.GameUpdate{}, fmt.Errorf("unknown field %q", strings.TrimSpace(field))
		}
		changed = true
	}
	if !changed {
		return "", model.GameUpdate{}, errors.New("nothing to change")
	}
	return id, u, nil
}

// Callback is a decoded inline button press.
type Callback struct {
	Prefix string
	ID     string
	Column string
}

// ParseCallback decodes the data of a game card button.
func ParseCallback(data string) (Callback, error) {
	data = strings.TrimPrefix(data, "\f")

	for _, prefix := range []string{view.CallbackDone, view.CallbackPlay, view.CallbackDelete} {
		if id, ok := strings.CutPrefix(data, prefix); ok {
			if id == "" {
				return Callback{}, ErrBadCallback
			}
			return Callback{Prefix: prefix, ID: id}, nil
		}
	}

	if rest, ok := strings.CutPrefix(data, view.CallbackMove); ok {
		i := strings.LastIndex(rest, ":")
		if i <= 0 || i == len(rest)-1 {
			return Callback{}, ErrBadCallback
		}
		return Callback{Prefix: view.CallbackMove, ID: rest[:i], Column: rest[i+1:]}, nil
	}
	return Callback{}, ErrBadCallback
}
