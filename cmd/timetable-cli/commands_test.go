package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/engine"
)

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func fixtureOptions(t *testing.T) generateOptions {
	dir := t.TempDir()
	return generateOptions{
		courses: writeFixture(t, dir, "courses.csv", `course_id,component,student_group,faculty_id,faculty_name,seats_needed
CS101,LEC1,CSE-1,F1,Dr. Ada,40
CS101,Tutorial,CSE-1,F1,Dr. Ada,40
PH110,Lab,CSE-1,F2,Dr. Curie,20
`),
		rooms: writeFixture(t, dir, "rooms.csv", `room_id,capacity,room_type
R1,60,Classroom
Physics_Lab,30,Lab
`),
		faculty: writeFixture(t, dir, "faculty.csv", `faculty_id,name,max_teaching_days,allow_back_to_back
F1,Dr. Ada,5,true
F2,Dr. Curie,5,true
`),
		strategy: engine.StrategyGreedy,
		fallback: true,
		timeout:  30 * time.Second,
		logLevel: "error",
	}
}

func TestRunGenerateWritesCSV(t *testing.T) {
	opts := fixtureOptions(t)
	var stdout, stderr bytes.Buffer

	require.NoError(t, runGenerate(context.Background(), opts, &stdout, &stderr))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "day,time,course_id,component"))
	assert.Contains(t, stdout.String(), "Physics_Lab")
	assert.Contains(t, stderr.String(), "greedy: success (3/3 placed")
	assert.Contains(t, stderr.String(), " meetings, ")
}

func TestRunGenerateJSONToFile(t *testing.T) {
	opts := fixtureOptions(t)
	opts.asJSON = true
	opts.out = filepath.Join(t.TempDir(), "result.json")

	var stdout, stderr bytes.Buffer
	require.NoError(t, runGenerate(context.Background(), opts, &stdout, &stderr))
	assert.Empty(t, stdout.String())

	body, err := os.ReadFile(opts.out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"status": "success"`)
}

func TestRunGenerateUnknownStrategy(t *testing.T) {
	opts := fixtureOptions(t)
	opts.strategy = "annealing"
	err := runGenerate(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrUnknownStrategy)
}

func TestRunGenerateMissingFile(t *testing.T) {
	opts := fixtureOptions(t)
	opts.courses = filepath.Join(t.TempDir(), "nope.csv")
	require.Error(t, runGenerate(context.Background(), opts, &bytes.Buffer{}, &bytes.Buffer{}))
}

func TestLoadInputDefaultsRoomsAndGroups(t *testing.T) {
	opts := fixtureOptions(t)
	opts.rooms = ""
	input, err := loadInput(opts)
	require.NoError(t, err)
	assert.Len(t, input.Rooms, 10)
	assert.Equal(t, []string{"CSE-1"}, input.Groups)
	assert.Len(t, input.Faculty, 2)
}

func TestCatalogCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "MWF_1_L")
	assert.Contains(t, out.String(), "08:00-08:55")

	var second string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "MWF_2_L ") {
			second = line
		}
	}
	require.NotEmpty(t, second)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(second), "MWF_1"), second)
}

func TestGenerateRequiresCourses(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate"})
	require.Error(t, cmd.Execute())
}
