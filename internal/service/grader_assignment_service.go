package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sai-Yarlagadda/grading-14763/internal/models"
	appErrors "github.com/Sai-Yarlagadda/grading-14763/pkg/errors"
)

// ParseQuestionSet builds questions from per-question sub-label lists.
// entries[i] holds the comma separated sub-labels of question i+1; an empty entry means the
// question has no parts and is labelled by its number.
func ParseQuestionSet(entries []string) (models.QuestionSet, error) {
	if len(entries) == 0 {
		return models.QuestionSet{}, appErrors.Clone(appErrors.ErrValidation, "at least one question is required")
	}
	set := models.QuestionSet{Questions: make([]models.Question, 0, len(entries))}
	seen := make(map[string]int)
	for i, entry := range entries {
		number := i + 1
		var labels []string
		for _, part := range strings.Split(entry, ",") {
			if label := strings.TrimSpace(part); label != "" {
				labels = append(labels, label)
			}
		}
		if len(labels) == 0 {
			labels = []string{strconv.Itoa(number)}
		}
		for _, label := range labels {
			if prev, ok := seen[label]; ok {
				return models.QuestionSet{}, appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("sub-question %q appears in question %d and question %d", label, prev, number))
			}
			seen[label] = number
		}
		set.Questions = append(set.Questions, models.Question{Number: number, Labels: labels})
	}
	return set, nil
}

// AssignGraders cycles graders over every sub-question in question order without resetting
// between questions.
func AssignGraders(questions models.QuestionSet, graders []string) (models.Assignment, error) {
	if len(graders) == 0 {
		return models.Assignment{}, appErrors.ErrEmptyRoster
	}
	labels := questions.Labels()
	assignment := models.Assignment{Entries: make([]models.AssignmentEntry, len(labels))}
	for i, label := range labels {
		grader := graders[i%len(graders)]
		assignment.Entries[i] = models.AssignmentEntry{
			Label:  label,
			Grader: grader,
			Header: models.ColumnHeader(label, grader),
		}
	}
	return assignment, nil
}
