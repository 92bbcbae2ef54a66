// Package xmltree decodes XML documents into a generic element tree.
//
// The tree keeps element names, attributes, direct character data and child
// elements in document order. Namespaces are dropped and only local names are
// kept, which is all XMLTV consumers need.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

var ErrEmptyDocument = errors.New("xml document has no root element")

// Node 通用XML节点
type Node struct {
	Name     string            // 元素名称（不含命名空间）
	Attrs    map[string]string // 属性
	Text     string            // 元素自身的字符数据，不包含子元素的内容
	Children []*Node           // 子元素，按文档顺序

	segments []segment // 混合内容中字符数据的位置，用于按文档顺序还原文本
}

// segment 出现在第before个子元素之前的字符数据
type segment struct {
	before int
	text   string
}

// Attr 获取属性值
func (n *Node) Attr(name string) (string, bool) {
	if n == nil || n.Attrs == nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

// Child 返回第一个指定名称的子元素，不存在时返回nil
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed 返回所有指定名称的子元素
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var result []*Node
	for _, c := range n.Children {
		if c.Name == name {
			result = append(result, c)
		}
	}
	return result
}

// InnerText 返回元素及其所有子孙元素的字符数据
func (n *Node) InnerText() string {
	if n == nil {
		return ""
	}
	if len(n.Children) == 0 {
		return n.Text
	}
	var sb strings.Builder
	n.writeText(&sb)
	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	if len(n.Children) == 0 || n.segments == nil {
		sb.WriteString(n.Text)
		for _, c := range n.Children {
			c.writeText(sb)
		}
		return
	}

	next := 0
	for i, c := range n.Children {
		for next < len(n.segments) && n.segments[next].before <= i {
			sb.WriteString(n.segments[next].text)
			next++
		}
		c.writeText(sb)
	}
	for ; next < len(n.segments); next++ {
		sb.WriteString(n.segments[next].text)
	}
}

// Parse 解析XML文档，返回根元素
func Parse(r io.Reader) (*Node, error) {
	decoder := xml.NewDecoder(r)
	decoder.Entity = xml.HTMLEntity
	// 按encoding声明转换为UTF-8，支持latin1、windows-1252等常见编码
	decoder.CharsetReader = charset.NewReaderLabel

	var root *Node
	var stack []*Node
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Name: t.Name.Local}
			if len(t.Attr) > 0 {
				node.Attrs = make(map[string]string, len(t.Attr))
				for _, a := range t.Attr {
					node.Attrs[a.Name.Local] = a.Value
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("parse xml: multiple root elements")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			top := stack[len(stack)-1]
			top.finish()
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				top := stack[len(stack)-1]
				top.segments = append(top.segments, segment{before: len(top.Children), text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, ErrEmptyDocument
	}
	return root, nil
}

// finish 合并字符数据，没有子元素时不再需要保留位置信息
func (n *Node) finish() {
	switch len(n.segments) {
	case 0:
	case 1:
		n.Text = n.segments[0].text
	default:
		var sb strings.Builder
		for _, seg := range n.segments {
			sb.WriteString(seg.text)
		}
		n.Text = sb.String()
	}
	if len(n.Children) == 0 {
		n.segments = nil
	}
}

// ParseBytes 解析内存中的XML文档
func ParseBytes(data []byte) (*Node, error) {
	return Parse(bytes.NewReader(data))
}
