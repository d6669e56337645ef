package scheduler

import "strings"

// AnalyzeAccess walks a CommandTree and returns its AccessSet by
// structural recursion (§4.1). nest is the loop-nesting depth at which
// cmd appears, and is threaded through so While/Until/For bodies are
// analyzed one nest deeper than their test.
//
// The analyzer is deliberately conservative: argument lists are never
// scanned for file targets, only explicit redirections are. Argument
// lists ARE scanned for literal $name references, since a command that
// reads a variable must queue behind every prior writer of it (§4.7);
// this catches the common case, and an Evaluator may still discover and
// wait on a variable dynamically (command substitution, indirection)
// through the ReadLatest/QueueReader API it receives at Evaluate time.
func AnalyzeAccess(cmd *CommandTree, nest int) (AccessSet, error) {
	if cmd == nil {
		return nil, &SchedulerError{Message: "nil CommandTree", Code: "ANALYZER_MALFORMED"}
	}

	switch cmd.Kind {
	case KindSimple:
		var set AccessSet
		for _, a := range cmd.Assigns {
			set = append(set, Access{Kind: AccessWrite, Name: VarAccessName(a.Name)})
		}
		for _, name := range literalVarRefs(cmd.Args) {
			set = append(set, Access{Kind: AccessRead, Name: VarAccessName(name)})
		}
		redirSet, err := analyzeRedirects(cmd.Redirects)
		if err != nil {
			return nil, err
		}
		set = append(set, redirSet...)
		return set, nil

	case KindRedir:
		return analyzeRedirChain(cmd)

	case KindVarAssign:
		if cmd.Simple == nil {
			return nil, &SchedulerError{Message: "VarAssign missing Simple child", Code: "ANALYZER_MALFORMED"}
		}
		return AnalyzeAccess(cmd.Simple, nest)

	case KindBackground:
		if cmd.Inner == nil {
			return nil, &SchedulerError{Message: "Background missing Inner child", Code: "ANALYZER_MALFORMED"}
		}
		return AnalyzeAccess(cmd.Inner, nest)

	case KindNot:
		if cmd.Inner == nil {
			return nil, &SchedulerError{Message: "Not missing Inner child", Code: "ANALYZER_MALFORMED"}
		}
		return AnalyzeAccess(cmd.Inner, nest)

	case KindSemi, KindAnd, KindOr:
		if cmd.Left == nil || cmd.Right == nil {
			return nil, &SchedulerError{Message: cmd.Kind.String() + " missing Left/Right child", Code: "ANALYZER_MALFORMED"}
		}
		left, err := AnalyzeAccess(cmd.Left, nest)
		if err != nil {
			return nil, err
		}
		right, err := AnalyzeAccess(cmd.Right, nest)
		if err != nil {
			return nil, err
		}
		return append(append(AccessSet{}, left...), right...), nil

	case KindIf:
		if cmd.Test == nil || cmd.Then == nil {
			return nil, &SchedulerError{Message: "If missing Test/Then child", Code: "ANALYZER_MALFORMED"}
		}
		test, err := AnalyzeAccess(cmd.Test, nest)
		if err != nil {
			return nil, err
		}
		then, err := AnalyzeAccess(cmd.Then, nest)
		if err != nil {
			return nil, err
		}
		set := append(append(AccessSet{}, test...), then...)
		if cmd.Else != nil {
			els, err := AnalyzeAccess(cmd.Else, nest)
			if err != nil {
				return nil, err
			}
			set = append(set, els...)
		}
		return set, nil

	case KindWhile, KindUntil:
		if cmd.Test == nil || cmd.Body == nil {
			return nil, &SchedulerError{Message: cmd.Kind.String() + " missing Test/Body child", Code: "ANALYZER_MALFORMED"}
		}
		test, err := AnalyzeAccess(cmd.Test, nest)
		if err != nil {
			return nil, err
		}
		body, err := AnalyzeAccess(cmd.Body, nest+1)
		if err != nil {
			return nil, err
		}
		return append(append(AccessSet{}, test...), body...), nil

	case KindFor:
		if cmd.Body == nil {
			return nil, &SchedulerError{Message: "For missing Body child", Code: "ANALYZER_MALFORMED"}
		}
		body, err := AnalyzeAccess(cmd.Body, nest+1)
		if err != nil {
			return nil, err
		}
		set := AccessSet{{Kind: AccessWrite, Name: VarAccessName(cmd.LoopVar)}}
		return append(set, body...), nil

	case KindPipe:
		var set AccessSet
		for _, member := range cmd.List {
			members, err := AnalyzeAccess(member, nest)
			if err != nil {
				return nil, err
			}
			set = append(set, members...)
		}
		return set, nil

	case KindBreak:
		return AccessSet{{Kind: AccessBreak, TargetNest: normalizeLevels(cmd.Levels, nest)}}, nil

	case KindContinue:
		return AccessSet{{Kind: AccessContinue, TargetNest: normalizeLevels(cmd.Levels, nest)}}, nil

	case KindEof:
		return AccessSet{}, nil

	default:
		return nil, &SchedulerError{Message: "unknown CommandTree kind", Code: "ANALYZER_MALFORMED"}
	}
}

// literalVarRefs scans args for $name / ${name} tokens and returns the
// distinct variable names referenced. It only recognizes a reference
// that is the entire argument or begins the argument (e.g. "$x",
// "${x}", "$x.txt", "${x}_suffix"); it does not parse quoting or
// attempt to find a reference embedded mid-word after other text, since
// the scheduler has no shell lexer of its own and this is meant to
// catch the common case conservatively, not replace one.
func literalVarRefs(args []string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, arg := range args {
		name, ok := leadingVarRef(arg)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func leadingVarRef(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "$") {
		return "", false
	}
	rest := arg[1:]
	if strings.HasPrefix(rest, "{") {
		end := strings.IndexByte(rest, '}')
		if end <= 1 {
			return "", false
		}
		return rest[1:end], true
	}
	end := 0
	for end < len(rest) && isVarNameByte(rest[end], end == 0) {
		end++
	}
	if end == 0 {
		return "", false
	}
	return rest[:end], true
}

func isVarNameByte(b byte, first bool) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b == '_':
		return true
	case b >= '0' && b <= '9':
		return !first
	default:
		return false
	}
}

func analyzeRedirects(redirects []Redirect) (AccessSet, error) {
	var set AccessSet
	for _, r := range redirects {
		switch r.Kind {
		case RedirInput:
			set = append(set, Access{Kind: AccessRead, Name: r.Target})
		case RedirOutput, RedirAppend, RedirClobber:
			set = append(set, Access{Kind: AccessWrite, Name: r.Target})
		default:
			return nil, &SchedulerError{Message: "unknown redirect kind", Code: "ANALYZER_MALFORMED"}
		}
	}
	return set, nil
}

// analyzeRedirChain walks a standalone Redir chain (cmd.Kind ==
// KindRedir), collecting each link's access and following Next.
func analyzeRedirChain(cmd *CommandTree) (AccessSet, error) {
	var set AccessSet
	for n := cmd; n != nil; n = n.Next {
		if n.Kind != KindRedir {
			inner, err := AnalyzeAccess(n, 0)
			if err != nil {
				return nil, err
			}
			set = append(set, inner...)
			break
		}
		switch n.RedirKind {
		case RedirInput:
			set = append(set, Access{Kind: AccessRead, Name: n.Target})
		case RedirOutput, RedirAppend, RedirClobber:
			set = append(set, Access{Kind: AccessWrite, Name: n.Target})
		default:
			return nil, &SchedulerError{Message: "unknown redirect kind", Code: "ANALYZER_MALFORMED"}
		}
	}
	return set, nil
}
