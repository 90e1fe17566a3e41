package main

import (
	"encoding/json"
	"os"

	"rgehrsitz/acrex/internal/preprocessor"

	"github.com/rs/zerolog/log"
)

func main() {
	// Assume the first argument is the path to the rule file
	if len(os.Args) < 2 {
		log.Fatal().Msg("Usage: preprocessor <rules_file> [output_file]")
	}
	inputFilePath := os.Args[1]
	outputFilePath := "rules.normalized.json"
	if len(os.Args) > 2 {
		outputFilePath = os.Args[2]
	}

	// Parse and validate the rules
	validatedRules, err := preprocessor.LoadRulesFile(inputFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading rules")
	}

	shadows, err := preprocessor.FindShadowedRules(validatedRules)
	if err != nil {
		log.Fatal().Err(err).Msg("Error analyzing rules")
	}
	for _, s := range shadows {
		log.Warn().Str("rule", s.Rule).Int("priority", s.Priority).Str("shadowed_by", s.By).Msg("Rule can never be selected")
	}

	// Order the rules and drop duplicate conditions
	optimizedRules := preprocessor.OptimizeRules(validatedRules)

	out, err := json.MarshalIndent(map[string]interface{}{"rules": optimizedRules}, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Error encoding rules")
	}

	if err := os.WriteFile(outputFilePath, append(out, '\n'), 0644); err != nil {
		log.Fatal().Err(err).Msg("Error writing rules file")
	}

	log.Info().Str("output", outputFilePath).Int("rules", len(optimizedRules)).Msg("Preprocessing completed successfully.")
}
