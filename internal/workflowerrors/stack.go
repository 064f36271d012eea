package workflowerrors

import goerrors "github.com/go-errors/errors"

func callers() string {
	return string(goerrors.Wrap("", 2).Stack())
}
