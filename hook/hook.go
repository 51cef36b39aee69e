package hook

import (
	"github.com/pkg/errors"
)

// Call runs hook.Try, routes its error through hook.Catch and always runs
// hook.Finally. A panic inside Try or Catch is recovered and returned as an
// error carrying the panic value.
func Call(hook Interface) (err error) {
	if hook == nil {
		return errors.New("nil hook")
	}
	defer hook.Finally()
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("recovered panic: %v", r)
		}
	}()

	if err = hook.Try(); err != nil {
		err = hook.Catch(err)
	}
	return err
}
