package main

import "github.com/anuragrao04/classroom-attendance/cmd"

func main() {
	cmd.Execute()
}
