package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "backtest", "models", "seed"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, "trend_following", orDefault("", "trend_following"))
	assert.Equal(t, "buy_and_hold", orDefault("buy_and_hold", "trend_following"))
	assert.Equal(t, 5, orDefaultInt(0, 5))
	assert.Equal(t, 2, orDefaultInt(2, 5))
}
