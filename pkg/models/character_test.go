package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestSkillListWireForm(t *testing.T) {
	c := Character{ID: 1, Skills: SkillList{7, 2, 11}}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"skills":"[7,2,11]"`) {
		t.Fatalf("skills not serialized as text: %s", b)
	}

	var back Character
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(back.Skills, SkillList{7, 2, 11}) {
		t.Fatalf("skills = %v, want [7 2 11]", back.Skills)
	}
}

func TestSkillListAcceptsArrayAndNull(t *testing.T) {
	var s SkillList
	if err := json.Unmarshal([]byte(`[4, 1]`), &s); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if !reflect.DeepEqual(s, SkillList{4, 1}) {
		t.Fatalf("skills = %v", s)
	}
	if err := json.Unmarshal([]byte(`null`), &s); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if len(s) != 0 {
		t.Fatalf("skills = %v, want empty", s)
	}
	if err := json.Unmarshal([]byte(`"not json"`), &s); err == nil {
		t.Fatal("expected error for malformed text")
	}
}

func TestSkillListScan(t *testing.T) {
	var s SkillList
	if err := s.Scan([]byte("[3,5]")); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !reflect.DeepEqual(s, SkillList{3, 5}) {
		t.Fatalf("skills = %v", s)
	}
	if err := s.Scan(nil); err != nil || len(s) != 0 {
		t.Fatalf("scan nil = %v, %v", s, err)
	}
	if err := s.Scan(42); err == nil {
		t.Fatal("expected error for int source")
	}
	v, _ := SkillList(nil).Value()
	if v != "[]" {
		t.Fatalf("empty value = %v, want []", v)
	}
}

func TestCharacterInputCamelCase(t *testing.T) {
	body := `{"userId":9,"name":"Vex","class":"Ranger","hitPoints":12,"hitDice":"1d10","armorClass":14,"backgroundStory":"twin","skills":[1,2]}`
	var in CharacterInput
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	c := in.Character()
	if c.UserID != 9 || c.HitPoints != 12 || c.HitDice != "1d10" || c.ArmorClass != 14 || c.BackgroundStory != "twin" {
		t.Fatalf("unexpected character %+v", c)
	}
	if !reflect.DeepEqual([]int64(c.Skills), in.Skills) {
		t.Fatalf("skills = %v, want %v", c.Skills, in.Skills)
	}
}
