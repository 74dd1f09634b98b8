package irrigation

import (
	. "gopkg.in/check.v1"
)

type ZoneStateSuite struct{}

var _ = Suite(&ZoneStateSuite{})

func (s *ZoneStateSuite) TestLevel(c *C) {
	testdata := []struct {
		State ZoneState
		Level uint8
	}{
		{ZoneState{Running: false, RemainingSeconds: 10, ConfiguredDurationSeconds: 10}, 0},
		{ZoneState{Running: true, RemainingSeconds: 300, ConfiguredDurationSeconds: 300}, 255},
		{ZoneState{Running: true, RemainingSeconds: 150, ConfiguredDurationSeconds: 300}, 127},
		{ZoneState{Running: true, RemainingSeconds: 1, ConfiguredDurationSeconds: 300}, 0},
		{ZoneState{Running: true, RemainingSeconds: 5, ConfiguredDurationSeconds: 0}, 0},
		{ZoneState{Running: true, RemainingSeconds: 20, ConfiguredDurationSeconds: 10}, 255},
	}
	for _, d := range testdata {
		c.Check(d.State.Level(), Equals, d.Level, Commentf("state: %+v", d.State))
	}
}

func (s *ZoneStateSuite) TestLevelDuration(c *C) {
	testdata := []struct {
		Level    uint8
		Default  int
		Expected int
	}{
		{0, 300, 0},
		{255, 300, 300},
		{128, 300, 150},
		{1, 300, 1},
		{64, 60, 15},
	}
	for _, d := range testdata {
		c.Check(LevelDuration(d.Level, d.Default), Equals, d.Expected, Commentf("%+v", d))
	}
}
