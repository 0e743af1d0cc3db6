/*
NAME
  main_test.go

DESCRIPTION
  main_test.go covers bcdPage, the one pure function in main.go; flag
  parsing, signal handling and I/O wiring are exercised by extract's own
  tests, matching the teacher's convention of leaving cmd/ entry points
  themselves untested.

AUTHOR
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import "testing"

func TestBcdPage(t *testing.T) {
	cases := []struct {
		decimal int
		want    int
	}{
		{0, 0},
		{100, 0x100},
		{199, 0x199},
		{828, 0x828},
		{899, 0x899},
		{801, 0x801},
	}
	for _, c := range cases {
		if got := bcdPage(c.decimal); got != c.want {
			t.Errorf("bcdPage(%d) = %#x, want %#x", c.decimal, got, c.want)
		}
	}
}
