// Command preview-questions loads a question set and prints sample
// questions with their answers, without touching any database.
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/stemsi/physqgen-backend/internal/config"
	"github.com/stemsi/physqgen-backend/internal/logger"
	"github.com/stemsi/physqgen-backend/internal/model"
)

func main() {
	var (
		dir   string
		file  string
		count int
		seed  uint64
	)
	flag.StringVar(&dir, "dir", "", "Question config dir holding active_config.json (default QUESTION_CONFIG_DIR)")
	flag.StringVar(&file, "file", "", "Load this question set file instead of the active one")
	flag.IntVar(&count, "n", 1, "Samples to generate per question")
	flag.Uint64Var(&seed, "seed", 0, "Seed for reproducible samples (0 picks a random seed)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if dir == "" {
		dir = cfg.QuestionConfigDir
	}

	var (
		set *config.QuestionSet
		err error
	)
	if file != "" {
		set, err = config.LoadQuestionSetFile(file)
	} else {
		set, err = config.LoadQuestionSet(dir)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load question set")
	}

	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	fmt.Printf("Question set %q: %d questions\n", set.Name, len(set.Questions))
	fmt.Printf("Seed: %d\n", seed)
	failed := 0
	for i, qc := range set.Questions {
		for n := 0; n < count; n++ {
			q, err := qc.Generate(rng)
			if err != nil {
				log.Error().Err(err).Int("question", i+1).Msg("Generation failed")
				failed++
				continue
			}
			printQuestion(i+1, q)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printQuestion(position int, q *model.Question) {
	fmt.Printf("\n#%d %s\n", position, q.Text)
	for _, v := range q.KnownVariables() {
		fmt.Printf("    %s\n", v)
	}
	if answer, ok := q.Variables[q.AnswerVariableName]; ok {
		fmt.Printf("  answer: %s (accepting ±%.0f%%)\n", answer, q.CorrectLeeway*100)
	}
	if q.ImageFilename != "" {
		fmt.Printf("  image: %s\n", q.ImageFilename)
	}
}
