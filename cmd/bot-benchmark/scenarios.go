package main

import "github.com/bcspragu/Sonar/sonar"

// Scenario is a goal word for every bot to hunt down.
type Scenario struct {
	Language sonar.Language
	Category sonar.Category
	Goal     string
}

// Result is how one bot did against one scenario.
type Result struct {
	// Turns is how many guesses the bot made, including invalid ones.
	Turns   int
	Won     bool
	Invalid int
	// Best is the closest the bot got, on the 0-100 scale.
	Best float64
}

var (
	Scenarios = []Scenario{
		{Language: sonar.English, Category: sonar.Sports, Goal: "football"},
		{Language: sonar.English, Category: sonar.History, Goal: "empire"},
		{Language: sonar.English, Category: sonar.Science, Goal: "molecule"},
		{Language: sonar.English, Category: sonar.ComputerScience, Goal: "compiler"},
		{Language: sonar.English, Category: sonar.Mixed, Goal: "river"},
		{Language: sonar.English, Category: sonar.Mixed, Goal: "music"},
	}
)
