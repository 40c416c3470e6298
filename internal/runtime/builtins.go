package runtime

import (
	"context"

	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// makeKindsFn creates a builtin that passes its arguments to add. Each
// argument is a kind name or a list of kind names.
//
// name(kind, ...) → nil
func makeKindsFn(name string, add func(kinds ...string)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) == 0 {
			return object.Errorf("%s: expected at least one kind", name)
		}
		var kinds []string
		for _, arg := range args {
			switch v := arg.(type) {
			case *object.String:
				kinds = append(kinds, v.Value())
			case *object.List:
				for _, item := range v.Value() {
					s, ok := item.(*object.String)
					if !ok {
						return object.Errorf("%s: kind must be a string, got %s", name, item.Type())
					}
					kinds = append(kinds, s.Value())
				}
			default:
				return object.Errorf("%s: kind must be a string, got %s", name, arg.Type())
			}
		}
		add(kinds...)
		return object.Nil
	})
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
