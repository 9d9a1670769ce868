// script_lua.go - Lua debugger scripts driving breakpoints, keys and memory

package main

import (
	"fmt"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// LuaScript exposes the machine to a Lua state. Every hook runs on the
// scheduler goroutine between instructions, so scripts see a consistent
// machine and may change it freely.
//
//	on_pc(addr, fn)      call fn before the instruction at addr
//	on_frame(fn)         call fn after every frame
//	key_down(name)       press a key ("A", "ENTER", "CAPS", "SYM", "SPACE")
//	key_up(name)         release it
//	type_text(s)         queue text as timed key strokes
//	peek(addr)           read a byte
//	poke(addr, v)        write a byte
//	reg(name)            read a register ("A", "HL", "PC", "IX'", ...)
//	set_reg(name, v)     write a register
//	cycles()             current t-state
//	frames()             frames drawn so far
//	disasm(addr [, n])   text and length of the instruction(s) at addr
//	tape_play()          start the tape deck
//	tape_stop()          stop it
//	stop()               end the run
type LuaScript struct {
	L *lua.LState
	m *Spectrum

	pcHooks    map[uint16][]*lua.LFunction
	frameHooks []*lua.LFunction

	stopped bool
	err     error
}

func NewLuaScript(m *Spectrum) *LuaScript {
	s := &LuaScript{
		L:       lua.NewState(),
		m:       m,
		pcHooks: make(map[uint16][]*lua.LFunction),
	}
	s.register()
	return s
}

func (s *LuaScript) register() {
	funcs := map[string]lua.LGFunction{
		"on_pc":     s.luaOnPC,
		"on_frame":  s.luaOnFrame,
		"key_down":  s.luaKeyDown,
		"key_up":    s.luaKeyUp,
		"type_text": s.luaTypeText,
		"peek":      s.luaPeek,
		"poke":      s.luaPoke,
		"reg":       s.luaReg,
		"set_reg":   s.luaSetReg,
		"cycles":    s.luaCycles,
		"frames":    s.luaFrames,
		"disasm":    s.luaDisasm,
		"tape_play": s.luaTapePlay,
		"tape_stop": s.luaTapeStop,
		"stop":      s.luaStop,
	}
	for name, fn := range funcs {
		s.L.SetGlobal(name, s.L.NewFunction(fn))
	}
}

func (s *LuaScript) LoadFile(path string) error {
	if err := s.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

func (s *LuaScript) LoadString(src string) error {
	if err := s.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

func (s *LuaScript) Close() {
	s.L.Close()
}

func (s *LuaScript) HasPCHooks() bool {
	return len(s.pcHooks) > 0
}

// Stopped reports whether the script called stop() or failed.
func (s *LuaScript) Stopped() bool {
	return s.stopped
}

// Err is the runtime error that stopped the script, if any.
func (s *LuaScript) Err() error {
	return s.err
}

func (s *LuaScript) OnPC(pc uint16) {
	for _, fn := range s.pcHooks[pc] {
		s.call(fn, lua.LNumber(pc))
		if s.stopped {
			return
		}
	}
}

func (s *LuaScript) OnFrame() {
	frame := lua.LNumber(s.m.ula.FrameCount())
	for _, fn := range s.frameHooks {
		s.call(fn, frame)
		if s.stopped {
			return
		}
	}
}

func (s *LuaScript) call(fn *lua.LFunction, args ...lua.LValue) {
	err := s.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, args...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "script: %v\n", err)
		s.err = err
		s.stopped = true
	}
}

func checkAddr(L *lua.LState, n int) uint16 {
	v := L.CheckInt(n)
	if v < 0 || v > 0xFFFF {
		L.ArgError(n, "address out of range")
	}
	return uint16(v)
}

func checkKey(L *lua.LState, n int) SpectrumKey {
	name := L.CheckString(n)
	k, ok := LookupKey(name)
	if !ok {
		L.ArgError(n, fmt.Sprintf("unknown key %q", name))
	}
	return k
}

func (s *LuaScript) luaOnPC(L *lua.LState) int {
	addr := checkAddr(L, 1)
	fn := L.CheckFunction(2)
	s.pcHooks[addr] = append(s.pcHooks[addr], fn)
	return 0
}

func (s *LuaScript) luaOnFrame(L *lua.LState) int {
	s.frameHooks = append(s.frameHooks, L.CheckFunction(1))
	return 0
}

func (s *LuaScript) luaKeyDown(L *lua.LState) int {
	s.m.keyboard.Press(checkKey(L, 1))
	return 0
}

func (s *LuaScript) luaKeyUp(L *lua.LState) int {
	s.m.keyboard.Release(checkKey(L, 1))
	return 0
}

func (s *LuaScript) luaTypeText(L *lua.LState) int {
	s.m.typer.Type(L.CheckString(1))
	return 0
}

func (s *LuaScript) luaPeek(L *lua.LState) int {
	L.Push(lua.LNumber(s.m.mem.Read(checkAddr(L, 1))))
	return 1
}

func (s *LuaScript) luaPoke(L *lua.LState) int {
	addr := checkAddr(L, 1)
	s.m.mem.Write(addr, byte(L.CheckInt(2)))
	return 0
}

func (s *LuaScript) luaReg(L *lua.LState) int {
	name := L.CheckString(1)
	v, ok := NewDebugZ80(s.m.cpu).GetRegister(name)
	if !ok {
		L.ArgError(1, fmt.Sprintf("unknown register %q", name))
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (s *LuaScript) luaSetReg(L *lua.LState) int {
	name := L.CheckString(1)
	if !NewDebugZ80(s.m.cpu).SetRegister(name, uint64(L.CheckInt(2))) {
		L.ArgError(1, fmt.Sprintf("cannot set register %q", name))
	}
	return 0
}

func (s *LuaScript) luaCycles(L *lua.LState) int {
	L.Push(lua.LNumber(s.m.sched.Now()))
	return 1
}

func (s *LuaScript) luaFrames(L *lua.LState) int {
	L.Push(lua.LNumber(s.m.ula.FrameCount()))
	return 1
}

func (s *LuaScript) luaDisasm(L *lua.LState) int {
	addr := checkAddr(L, 1)
	count := L.OptInt(2, 1)
	if count < 1 {
		count = 1
	}
	lines := disassembleZ80(s.m.mem.Read, addr, count)
	if count == 1 {
		L.Push(lua.LString(lines[0].Mnemonic))
		L.Push(lua.LNumber(lines[0].Size))
		return 2
	}
	var sb strings.Builder
	size := 0
	for i, l := range lines {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.String())
		size += l.Size
	}
	L.Push(lua.LString(sb.String()))
	L.Push(lua.LNumber(size))
	return 2
}

func (s *LuaScript) luaTapePlay(L *lua.LState) int {
	s.m.PlayTape()
	return 0
}

func (s *LuaScript) luaTapeStop(L *lua.LState) int {
	s.m.StopTape()
	return 0
}

func (s *LuaScript) luaStop(L *lua.LState) int {
	s.stopped = true
	return 0
}
