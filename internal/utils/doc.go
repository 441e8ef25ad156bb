// Package utils provides small filesystem and terminal helpers.
package utils
