package main

import (
	"os"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
